/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/pkg/checklist"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the release preflight checks",
	Long: `Check verifies the project is ready to start (or finish) a release:
the manifests lint clean, the changelog mentions the current version, and
any recorded checklist run matches the current checklist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer os.RemoveAll(loadedProject.TempDir)

		problems := 0
		report := func(ok bool, format string, args ...interface{}) {
			mark := "ok"
			if !ok {
				mark = "FAIL"
				problems++
			}
			fmt.Printf("%-4s %s\n", mark, fmt.Sprintf(format, args...))
		}

		errorFindings := 0
		for _, f := range loadedProject.LintAll() {
			if f.IsError() {
				errorFindings++
			}
		}
		report(errorFindings == 0, "manifests lint clean (%d errors)", errorFindings)

		if loadedProject.HasVersion {
			report(true, "version file parses: %s", loadedProject.Version)
			if loadedProject.Changelog != "" {
				path := filepath.Join(loadedProject.Root, loadedProject.Changelog)
				raw, err := os.ReadFile(path)
				if err != nil {
					return errors.Wrap(err, fmt.Sprintf("read changelog %s", path))
				}
				mentioned := strings.Contains(string(raw), loadedProject.Version.String())
				report(mentioned, "changelog %s mentions %s", loadedProject.Changelog, loadedProject.Version)
			}
		}

		if loadedProject.Checklist != nil {
			state, err := checklist.LoadState(loadedProject.Root)
			if err != nil {
				return err
			}
			switch {
			case state == nil:
				report(true, "no release in progress")
			case !state.Matches(loadedProject.Checklist.Fingerprint()):
				report(false, "recorded checklist progress is stale")
			default:
				done := 0
				for _, step := range loadedProject.Checklist.Steps {
					if state.Done(step.Name) {
						done++
					}
				}
				report(true, "release in progress, %d/%d steps done", done, len(loadedProject.Checklist.Steps))
			}
		}

		if problems != 0 {
			return fmt.Errorf("%d preflight checks failed", problems)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
