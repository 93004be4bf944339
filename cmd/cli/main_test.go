package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTypesCommand(t *testing.T) {
	out, _, err := run(t, "", "types")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "TYPE"))
	assert.Contains(t, lines[1], "generic (default)")
	assert.Contains(t, lines[2], "bdd")
	assert.Contains(t, lines[2], "feature_name")
	assert.Contains(t, lines[3], "manual_notes, expected_outcomes")
}

func TestSchemaCommand(t *testing.T) {
	out, _, err := run(t, "", "schema", "Manual")
	require.NoError(t, err)
	assert.Contains(t, out, "Test type: manual")
	assert.Contains(t, out, "screenshot_urls")
	assert.Contains(t, out, "max_items=10")

	_, _, err = run(t, "", "schema", "bdx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "bdd"?`)

	_, _, err = run(t, "", "schema")
	assert.Error(t, err)
}

func TestValidateCommand_JSON(t *testing.T) {
	path := writeFile(t, "generic.json", `{
		"natural_language_steps": ["Open the home page", "Click the login button"],
		"automation_priority": "HIGH"
	}`)

	out, stderr, err := run(t, "", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "valid generic test data")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "generic", payload["type"])
	assert.Equal(t, "high", payload["automation_priority"])
}

func TestValidateCommand_YAML(t *testing.T) {
	path := writeFile(t, "login.yaml", `
type: bdd
feature_name: Login
scenario_name: Valid credentials
bdd_blocks:
  - type: given
    content: I am on the login page
  - type: when
    content: I submit valid credentials
  - type: then
    content: I see the dashboard
`)

	out, _, err := run(t, "", "validate", path, "--output", "yaml")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "bdd", payload["type"])
	assert.Equal(t, "1.0", payload["gherkin_syntax_version"])
	assert.Len(t, payload["bdd_blocks"], 3)
}

func TestValidateCommand_Stdin(t *testing.T) {
	out, _, err := run(t, `{"manual_notes": "Open the app and sign in", "expected_outcomes": "Dashboard is shown"}`,
		"validate", "-", "--type", "manual")
	require.NoError(t, err)
	assert.Contains(t, out, `"manual_notes": "Open the app and sign in"`)
}

func TestValidateCommand_FieldErrors(t *testing.T) {
	path := writeFile(t, "manual.json", `{
		"manual_notes": "Open the app and sign in",
		"expected_outcomes": "Dashboard is shown",
		"execution_time_estimate": 500
	}`)

	out, stderr, err := run(t, "", "validate", path, "-t", "manual")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInvalid))
	assert.Empty(t, out)
	assert.Contains(t, stderr, "1 field error(s)")
	assert.Contains(t, stderr, "execution_time_estimate: Execution time estimate cannot exceed 8 hours")
}

func TestValidateCommand_SemanticError(t *testing.T) {
	path := writeFile(t, "steps.json", `{"natural_language_steps": ["Click the button", "click the BUTTON"]}`)

	_, stderr, err := run(t, "", "validate", path)
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, stderr, "Duplicate natural language steps are not allowed")
}

func TestValidateCommand_BadInput(t *testing.T) {
	_, _, err := run(t, "", "validate", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")

	path := writeFile(t, "broken.json", `{"type": `)
	_, _, err = run(t, "", "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")

	path = writeFile(t, "ok.json", `{}`)
	_, _, err = run(t, "", "validate", path, "--type", "xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generic, bdd, manual")

	_, _, err = run(t, "", "validate", path, "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestResolveType(t *testing.T) {
	tests := []struct {
		name string
		flag string
		raw  map[string]any
		want string
	}{
		{"flag wins", "BDD", map[string]any{"type": "manual"}, "bdd"},
		{"payload tag", "", map[string]any{"type": "manual"}, "manual"},
		{"default", "", map[string]any{}, "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveType(tt.flag, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
