package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

func (a *app) typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List supported test types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tREQUIRED\tFIELDS")
			for _, t := range a.validators.SupportedTypes() {
				schema, err := a.validators.GetSchema(t)
				if err != nil {
					return err
				}
				name := string(t)
				if t == testtypes.Default() {
					name += " (default)"
				}
				required := strings.Join(schema.Required(), ", ")
				if required == "" {
					required = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", name, required, len(schema.Fields))
			}
			return w.Flush()
		},
	}
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <type>",
		Short: "Show the fields of a test type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := testtypes.ParseTestType(args[0])
			if err != nil {
				return err
			}
			schema, err := a.validators.GetSchema(t)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Test type: %s\n\n", t)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tKIND\tREQUIRED\tCONSTRAINTS\tDESCRIPTION")
			for _, f := range schema.Fields {
				required := ""
				if f.Required {
					required = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Name, f.Kind, required, f.Constraints(), f.Description)
			}
			return w.Flush()
		},
	}
}
