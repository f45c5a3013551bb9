package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peienli0114/multi-route-portfolio-template/internal/testutil"
)

const fixtureDir = "../content/testdata/work_list"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckReportsRoutes(t *testing.T) {
	dir := testutil.CopyDir(t, fixtureDir)

	out, err := run(t, "check", "--content", dir, "--config", writeConfig(t), "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Regexp(t, `^ROUTE\s+LANG\s+CATEGORIES\s+WORKS\s+DROPPED`, lines[0])
	require.Regexp(t, `^default\s+zh\s+3\s+5\s+w2`, lines[1])
	require.Contains(t, out, "studio")
	require.Contains(t, out, "5 works, 1 CV assets")
}

func TestCheckFailsOnProblems(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "allWorkData.json"), []byte("{broken"), 0o644))

	out, err := run(t, "check", "--content", dir, "--config", writeConfig(t), "--log-level", "error")
	require.Error(t, err)
	require.Contains(t, out, "problem:")
}

func TestSyncMapWritesPortfolioMap(t *testing.T) {
	dir := testutil.CopyDir(t, fixtureDir)
	require.NoError(t, os.Remove(filepath.Join(dir, "portfolioMap.json")))

	out, err := run(t, "sync-map", "--content", dir, "--config", writeConfig(t), "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "portfolioMap.json")

	data, err := os.ReadFile(filepath.Join(dir, "portfolioMap.json"))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"mc5\": \"MC5 研究\",\n  \"misc1\": \"Misc\",\n  \"r1\": \"Research One\",\n  \"w2\": \"Work Two\"\n}\n", string(data))
}

func TestInvalidConfigIsReported(t *testing.T) {
	_, err := run(t, "check", "--config", writeConfig(t), "--log-level", "loud")
	require.ErrorContains(t, err, "Log.Level")
}

// writeConfig returns an empty YAML config so the working directory's
// folio.yaml is never read.
func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	return path
}
