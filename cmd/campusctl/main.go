package main

import (
	"os"

	"github.com/rajivgeraev/campus-market/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		format, _ := cmd.PersistentFlags().GetString("format")
		printer := &cli.Printer{Format: format, Writer: os.Stdout, ErrWriter: os.Stderr}
		printer.PrintError(err)
		os.Exit(cli.GetExitCode(err))
	}
}
