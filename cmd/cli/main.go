package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/logging"
	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

var version = "dev"

// errInvalid is returned after the field errors were already printed
var errInvalid = errors.New("validation failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// app holds state shared by the subcommands
type app struct {
	verbose    bool
	validators *testtypes.Factory
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "intellibrowse",
		Short:         "IntelliBrowse - test case type-data tooling",
		Long:          `Inspect the supported test types and validate type-specific test data files.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if a.verbose {
				level = "debug"
			}
			logging.Setup(logging.Options{Level: level})
			a.validators = testtypes.NewFactory(testtypes.WithLogger(log.Logger))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Show validator warnings and debug logs")

	// Add subcommands
	rootCmd.AddCommand(a.typesCmd())
	rootCmd.AddCommand(a.schemaCmd())
	rootCmd.AddCommand(a.validateCmd())

	return rootCmd
}
