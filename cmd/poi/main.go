package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/torosent/poi/internal/config"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command line and prints any error once to stderr.
func run(args []string, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		printError(stderr, errorColorMode(root), err)
	}
	return err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "poi",
		Short:         "Query HTTP APIs through named request profiles",
		Long:          "poi sends requests described by named profiles in a YAML file and flattens\nthe JSON responses into records, one at a time or in CSV batches.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newQueryCmd(),
		newBatchCmd(),
		newURLCmd(),
		newParseCmd(),
		newProfilesCmd(),
	)
	return root
}

func printError(w io.Writer, mode string, err error) {
	red := color.New(color.FgRed)
	if colorEnabled(mode, w) {
		red.EnableColor()
	} else {
		red.DisableColor()
	}
	red.Fprintf(w, "Error: %v\n", err)
}

// errorColorMode resolves --color before settings are loaded, since the
// error may come from loading them.
func errorColorMode(root *cobra.Command) string {
	if flag := root.PersistentFlags().Lookup("color"); flag != nil && flag.Changed {
		return flag.Value.String()
	}
	if mode := os.Getenv(config.EnvPrefix + "_COLOR"); mode != "" {
		return mode
	}
	return config.ColorAuto
}
