package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/contract-auditor/internal/types"
)

// TestMain keeps the developer's environment from reaching a real model or database.
func TestMain(m *testing.M) {
	for _, key := range []string{"GEMINI_API_KEY", "DATABASE_URL", "AUDIT_RULES_PATH", "LOG_LEVEL"} {
		_ = os.Unsetenv(key)
	}
	_ = os.Setenv("LOG_LEVEL", "error")
	os.Exit(m.Run())
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sqliteURL(t *testing.T) string {
	t.Helper()
	return "sqlite://" + filepath.Join(t.TempDir(), "contracts.db")
}

const sampleContract = "CONTRATO DE PRESTACION DE SERVICIOS\n\nEntre Acme SpA y Beta Ltda."

func auditJSONContract(t *testing.T, dbURL, path string) types.Contract {
	t.Helper()
	stdout, _, err := executeCommand(t, "--db", dbURL, "audit", "--json", path)
	require.NoError(t, err)

	var c types.Contract
	require.NoError(t, json.Unmarshal([]byte(stdout), &c))
	return c
}

func TestAuditCommand_WithoutModelDegrades(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "servicios.txt", sampleContract)

	stdout, _, err := executeCommand(t, "--db", sqliteURL(t), "audit", path)

	require.NoError(t, err)
	assert.Contains(t, stdout, "CONTRACT AUDIT")
	assert.Contains(t, stdout, "servicios.txt")
	assert.Contains(t, stdout, "requires_human_review")
	assert.Contains(t, stdout, "low extraction confidence")
}

func TestAuditCommand_ReportsFailedFiles(t *testing.T) {
	dir := t.TempDir()
	dbURL := sqliteURL(t)
	good := writeFile(t, dir, "good.txt", sampleContract)
	empty := writeFile(t, dir, "empty.txt", "")

	_, stderr, err := executeCommand(t, "--db", dbURL, "audit", good, empty, filepath.Join(dir, "missing.txt"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 documents could not be audited")
	assert.Contains(t, stderr, "empty.txt")
	assert.Contains(t, stderr, "missing.txt")

	stdout, _, err := executeCommand(t, "--db", dbURL, "list", "--json")
	require.NoError(t, err)
	var list types.ContractList
	require.NoError(t, json.Unmarshal([]byte(stdout), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "good.txt", list.Contracts[0].FileName)
}

func TestAuditCommand_RequiresFile(t *testing.T) {
	_, _, err := executeCommand(t, "--db", "memory://", "audit")
	assert.Error(t, err)
}

func TestReviewShowExportDelete(t *testing.T) {
	dir := t.TempDir()
	dbURL := sqliteURL(t)
	c := auditJSONContract(t, dbURL, writeFile(t, dir, "servicios.txt", sampleContract))
	require.Equal(t, types.StatusRequiresHumanReview, c.Status)

	// A correction that breaks the duration rule is saved, not approved.
	months := 36
	corrected := types.DefaultExtractedData()
	corrected.Parties = []types.Party{{Name: "Acme SpA"}, {Name: "Beta Ltda"}}
	corrected.ContractDurationMonths = &months
	raw, err := json.Marshal(corrected)
	require.NoError(t, err)
	dataFile := writeFile(t, dir, "data.json", string(raw))

	stdout, _, err := executeCommand(t, "--db", dbURL, "review", c.ID, "--data", dataFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "requires_human_review")
	assert.Contains(t, stdout, "excessive_duration")

	// Approving over the open issue needs notes.
	_, _, err = executeCommand(t, "--db", dbURL, "review", c.ID, "--approve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires reviewer notes")

	stdout, _, err = executeCommand(t, "--db", dbURL, "review", c.ID, "--approve", "--notes", "plazo acordado")
	require.NoError(t, err)
	assert.Contains(t, stdout, "human override")
	assert.Contains(t, stdout, "[override] plazo acordado")

	stdout, _, err = executeCommand(t, "--db", dbURL, "list", "--status", "approved")
	require.NoError(t, err)
	assert.Contains(t, stdout, c.ID)

	stdout, _, err = executeCommand(t, "--db", dbURL, "show", c.ID, "--text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "CONTRATO DE PRESTACION DE SERVICIOS")

	out := filepath.Join(dir, "export.xlsx")
	stdout, _, err = executeCommand(t, "--db", dbURL, "export", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported 1 contracts")
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, _, err = executeCommand(t, "--db", dbURL, "delete", c.ID)
	require.NoError(t, err)

	_, _, err = executeCommand(t, "--db", dbURL, "show", c.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReviewCommand_CleanApprovalNeedsNoNotes(t *testing.T) {
	dir := t.TempDir()
	dbURL := sqliteURL(t)
	c := auditJSONContract(t, dbURL, writeFile(t, dir, "servicios.txt", sampleContract))

	// The fallback record breaks no rule, so approving it is not an override.
	stdout, _, err := executeCommand(t, "--db", dbURL, "review", c.ID, "--approve")

	require.NoError(t, err)
	assert.Contains(t, stdout, "human approved")
	assert.NotContains(t, stdout, "override")
}

func TestListCommand_BadFilters(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "status", args: []string{"list", "--status", "done"}, want: `unknown status "done"`},
		{name: "requires-review", args: []string{"list", "--requires-review", "maybe"}, want: "true or false"},
		{name: "export status", args: []string{"export", "--status", "done"}, want: `unknown status "done"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, append([]string{"--db", "memory://"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestListCommand_Empty(t *testing.T) {
	stdout, _, err := executeCommand(t, "--db", "memory://", "list")
	require.NoError(t, err)
	assert.Equal(t, "No contracts.\n", stdout)
}

func TestRulesCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "--db", "memory://", "rules")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Confidence threshold: 0.70")
	assert.Contains(t, stdout, "excessive_duration")
}

func TestRulesCommand_CustomTable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", strings.TrimSpace(`
reference_jurisdiction: Peru
jurisdiction_aliases: [lima]
rules:
  - id: long_term
    kind: max_duration_months
    severity: error
    threshold: 12
    message: "Term of {value} months exceeds {threshold}"
`))

	stdout, _, err := executeCommand(t, "--db", "memory://", "--rules", path, "rules")

	require.NoError(t, err)
	assert.Contains(t, stdout, "long_term [error]")
	assert.NotContains(t, stdout, "high_risk")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.json", `{"database_url": "memory://", "confidence_threshold": 0.9}`)

	stdout, _, err := executeCommand(t, "--config", cfgPath, "rules")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Confidence threshold: 0.90")

	bad := writeFile(t, dir, "bad.json", `{"confidence_threshold": 2}`)
	_, _, err = executeCommand(t, "--config", bad, "rules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence_threshold")
}
