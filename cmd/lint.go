/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/pkg/relkit"
)

var (
	lintBatch       bool
	lintParallel    int
	lintKeepReports bool
)

// lintCmd represents the lint command
var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Lint every requirements manifest the project references",
	Long: `Lint parses each root manifest and everything it includes, then checks
the tree: malformed lines, missing include targets, include cycles, duplicate
package names within a tier, non-exact pins, and conflicts with the
constraint pins. A report file is written per root manifest.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		roots := make(chan relkit.ManifestPath)

		defer func() {
			if lintKeepReports || (lintBatch && err == nil) {
				fmt.Printf("Reports are found at %s , user is responsible for deleting this directory\n", loadedProject.TempDir)
				return
			}
			os.RemoveAll(loadedProject.TempDir)
		}()

		defer func() {
			for range roots {
			}
		}()

		go func() {
			for _, root := range loadedProject.AllRoots() {
				roots <- root
			}
			close(roots)
		}()

		for _, f := range loadedProject.Graph.CycleEdges {
			fmt.Printf("%s:%d: error: include of %s creates a cycle\n", f.File, f.Line, f.Target)
		}

		failed := make([]relkit.ManifestPath, 0)

		type result struct {
			root     relkit.ManifestPath
			findings []relkit.Finding
			err      error
		}

		results := make(chan result)

		if lintParallel == 0 {
			lintParallel = runtime.NumCPU()
		}
		workerSem := make(chan struct{}, lintParallel)

		worker := func() {
			defer func() { workerSem <- struct{}{} }()
			for root := range roots {
				findings := loadedProject.LintRoot(root)
				err := func() error {
					err := loadedProject.MakeReportDir(root)
					if err != nil {
						return errors.Wrap(err, fmt.Sprintf("create report dir for %s", root))
					}
					report := strings.Builder{}
					for _, f := range findings {
						report.WriteString(f.String())
						report.WriteString("\n")
					}
					err = os.WriteFile(loadedProject.ReportPath(root, "lint.out"), []byte(report.String()), 0600)
					if err != nil {
						return errors.Wrap(err, fmt.Sprintf("write report for %s", root))
					}
					return nil
				}()
				results <- result{root: root, findings: findings, err: err}
			}
		}

		for i := 0; i < lintParallel; i++ {
			go worker()
		}
		go func() {
			for i := 0; i < lintParallel; i++ {
				<-workerSem
			}
			close(results)
		}()

		for result := range results {
			if result.err != nil {
				return result.err
			}
			hasError := false
			for _, f := range result.findings {
				fmt.Println(f)
				if f.IsError() {
					hasError = true
				}
			}
			if hasError {
				failed = append(failed, result.root)
			}
		}

		if len(failed) == 0 && len(loadedProject.Graph.CycleEdges) != 0 && lintBatch {
			return fmt.Errorf("The include graph has cycles!")
		}
		if len(failed) == 0 {
			fmt.Println("All manifests are clean!")
			return nil
		}

		fmt.Println("The following manifests have problems:")
		for _, root := range failed {
			fmt.Println(loadedProject.ReportPath(root, "lint.out"))
		}
		if lintBatch {
			err = fmt.Errorf("Some manifests failed lint!")
			return
		}
		fmt.Printf("Reports are found at %s, press enter when ready to remove (use --keep-reports to not delete report directories. Use --batch to skip this prompt)\n", loadedProject.TempDir)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Scan()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVar(&lintBatch, "batch", false, "If set, do not prompt the user for report cleanup, and return non-zero on failure")
	lintCmd.Flags().IntVar(&lintParallel, "parallel", 1, "Number of manifests to lint in parallel. Set to zero to use number of cpu cores")
	lintCmd.Flags().BoolVar(&lintKeepReports, "keep-reports", false, "Do not delete reports, even if all manifests are clean")
}
