/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/pkg/relkit"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every requirement of every manifest tier",
	Long: `List walks each root manifest and its -r includes and prints the
requirements it found, one per line, prefixed with the root they belong to.`,
	Run: func(cmd *cobra.Command, args []string) {
		reqs := make(chan relkit.ResolvedRequirement)
		go loadedProject.GenerateRequirements(reqs)

		for req := range reqs {
			fmt.Printf("%s: %s (%s:%d)\n", req.Root, req.Requirement, req.File, req.Line)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
