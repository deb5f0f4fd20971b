/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/pkg/pyversion"
)

var bumpDryRun bool

// bumpCmd represents the bump command
var bumpCmd = &cobra.Command{
	Use:       "bump PART",
	Short:     "Advance the release version and rewrite the version file",
	Long:      `Bump rewrites the project's version file with the named part advanced: major, minor, micro, alpha, beta, rc, or final.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{pyversion.PartMajor, pyversion.PartMinor, pyversion.PartMicro, pyversion.PartAlpha, pyversion.PartBeta, pyversion.PartRC, pyversion.PartFinal},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !loadedProject.HasVersion {
			return fmt.Errorf("The project has no version file")
		}
		next, err := loadedProject.Version.Bump(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", loadedProject.Version, next)
		if bumpDryRun {
			return nil
		}
		path := filepath.Join(loadedProject.Root, loadedProject.VersionFile)
		err = os.WriteFile(path, []byte(next.String()+"\n"), 0644)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("write version file %s", path))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bumpCmd)

	bumpCmd.Flags().BoolVar(&bumpDryRun, "dry-run", false, "Print the bumped version without writing the file")
}
