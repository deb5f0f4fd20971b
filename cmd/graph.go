/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var graphOutput string

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the manifest include graph as graphviz DOT",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := os.Stdout
		if graphOutput != "" {
			f, err := os.Create(graphOutput)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("create %s", graphOutput))
			}
			defer f.Close()
			out = f
		}
		return loadedProject.Graph.DOT(out)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "Write DOT to a file instead of stdout")
}
