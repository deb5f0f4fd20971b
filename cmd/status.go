/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/pkg/checklist"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show release checklist progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadedProject.Checklist == nil {
			return fmt.Errorf("The project has no checklist")
		}
		state, err := checklist.LoadState(loadedProject.Root)
		if err != nil {
			return err
		}
		if state == nil {
			fmt.Println("No release in progress")
			return nil
		}
		if !state.Matches(loadedProject.Checklist.Fingerprint()) {
			fmt.Println("Warning: the checklist changed since this release was started")
		}
		if state.Version != "" {
			fmt.Printf("Releasing %s, started %s\n", state.Version, state.StartedAt.Format("2006-01-02 15:04"))
		} else {
			fmt.Printf("Release started %s\n", state.StartedAt.Format("2006-01-02 15:04"))
		}
		done := 0
		for _, step := range loadedProject.Checklist.Steps {
			mark := " "
			if state.Done(step.Name) {
				mark = "x"
				done++
			}
			fmt.Printf("  [%s] %s\n", mark, step.Name)
		}
		fmt.Printf("%d/%d steps done\n", done, len(loadedProject.Checklist.Steps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
