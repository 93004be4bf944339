package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

func (a *app) validateCmd() *cobra.Command {
	var (
		typeName string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a type-data file",
		Long: `Validate a JSON or YAML type-data file and print the normalized payload.
Use - to read from stdin. When --type is omitted the payload's "type" key is
used, falling back to generic.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unsupported output format %q (use json or yaml)", output)
			}

			raw, err := readPayload(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			t, err := resolveType(typeName, raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			normalized, err := a.validators.ValidateTypeData(t, raw)
			if err != nil {
				ve, ok := testtypes.AsValidationError(err)
				if !ok {
					return err
				}
				printValidationError(cmd.ErrOrStderr(), ve)
				return errInvalid
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "✓ valid %s test data\n", t)
			return writePayload(out, output, normalized)
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Test type (generic, bdd, manual)")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format for the normalized payload (json, yaml)")

	return cmd
}

// readPayload decodes a JSON or YAML mapping. YAML is picked by extension;
// stdin is parsed as YAML, which also accepts JSON.
func readPayload(stdin io.Reader, path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

func resolveType(flag string, raw map[string]any) (testtypes.TestType, error) {
	if flag != "" {
		return testtypes.ParseTestType(flag)
	}
	if tag, ok := raw["type"].(string); ok && tag != "" {
		return testtypes.ParseTestType(tag)
	}
	return testtypes.Default(), nil
}

func printValidationError(w io.Writer, ve *testtypes.ValidationError) {
	if !ve.IsStructural() {
		fmt.Fprintf(w, "✗ %s\n", ve.Message)
		return
	}
	fmt.Fprintf(w, "✗ %d field error(s)\n", len(ve.Errors))
	for _, field := range ve.Fields() {
		fmt.Fprintf(w, "  %s: %s\n", field, ve.Errors[field])
	}
}

func writePayload(w io.Writer, format string, payload map[string]any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
