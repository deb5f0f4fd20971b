/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/tui"
	"github.com/relkit/relkit/pkg/checklist"
)

var (
	runFrom        string
	runBatch       bool
	runDryRun      bool
	runInteractive bool
	runRestart     bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the release checklist",
	Long: `Run walks the release checklist in listed order. Command steps run
under a shell with their output captured to report files; manual steps wait
for you to confirm them. Completed steps are recorded under .relkit/ so an
interrupted release resumes where it stopped.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if loadedProject.Checklist == nil {
			return fmt.Errorf("The project has no checklist")
		}

		state, err := loadedProject.ChecklistState(runRestart)
		if err != nil {
			return err
		}

		if runBatch && !runDryRun {
			for _, step := range loadedProject.Checklist.Steps {
				if step.Manual && !state.Done(step.Name) {
					return fmt.Errorf("Step %s is manual, it cannot run in batch mode", step.Name)
				}
			}
		}

		runner := &checklist.Runner{
			Checklist:  loadedProject.Checklist,
			State:      state,
			ProjectDir: loadedProject.Root,
			ReportDir:  loadedProject.ChecklistReportDir(),
			Out:        os.Stdout,
			Confirm:    confirmStep,
			DryRun:     runDryRun,
		}

		if runInteractive {
			return tui.Run(runner, runFrom)
		}

		err = runner.Run(runFrom)
		if err != nil {
			return err
		}
		if runDryRun {
			return nil
		}
		fmt.Printf("All checklist steps are done! Step output is under %s\n", runner.ReportDir)
		return nil
	},
}

func confirmStep(step checklist.Step) (bool, error) {
	fmt.Printf("Confirm that %s is done [y/N]: ", step.Name)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	answer := scanner.Text()
	return answer == "y" || answer == "Y", nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFrom, "from", "", "Start at the named step instead of the first incomplete one")
	runCmd.Flags().BoolVar(&runBatch, "batch", false, "Refuse checklists with incomplete manual steps instead of prompting")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print steps without running commands or recording progress")
	runCmd.Flags().BoolVar(&runInteractive, "interactive", false, "Drive the checklist from a terminal UI")
	runCmd.Flags().BoolVar(&runRestart, "restart", false, "Discard recorded progress and start the checklist over")
}
