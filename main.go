/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/relkit/relkit/cmd"

func main() {
	cmd.Execute()
}
