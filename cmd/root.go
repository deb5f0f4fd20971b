/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	goflag "flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"sigs.k8s.io/yaml"

	"github.com/relkit/relkit/pkg/relkit"
)

var (
	projectPath string
	requirePins bool

	project       *relkit.Project
	loadedProject *relkit.LoadedProject
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:               "relkit",
	Short:             "Keep your releases honest",
	Long:              `Relkit lints pip-style requirements manifests and walks you through your release checklist`,
	PersistentPreRunE: loadProject,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", "relkit.yaml", "Path to project YAML file")
	rootCmd.PersistentFlags().BoolVar(&requirePins, "require-pins", false, "Treat requirements without an exact version pin as errors")

	klogFlags := goflag.NewFlagSet("", goflag.PanicOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
}

func loadProject(*cobra.Command, []string) error {
	project = new(relkit.Project)
	projectBytes, err := os.ReadFile(projectPath)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("read file %s", projectPath))
	}
	err = yaml.Unmarshal(projectBytes, project)
	if err != nil {
		return errors.Wrap(err, "parse project yaml")
	}
	if requirePins {
		project.RequirePins = true
	}
	loadedProject, err = project.Load(filepath.Dir(projectPath))
	if err != nil {
		return errors.Wrap(err, "invalid project")
	}
	return nil
}
