package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupDB(t *testing.T) {
	t.Helper()
	t.Setenv("GOVSENSE_STORAGE_PATH", filepath.Join(t.TempDir(), "govsense.db"))
	t.Setenv("GOVSENSE_EMBEDDER_PROVIDER", "local")
	t.Setenv("GOVSENSE_LOGGING_LEVEL", "error")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "govsense dev")
	assert.Contains(t, out, "SQLite Driver:")
}

func TestImportSearchResolve(t *testing.T) {
	setupDB(t)

	csv := filepath.Join(t.TempDir(), "tthc.csv")
	require.NoError(t, os.WriteFile(csv, []byte(
		"Tên thủ tục,Mã thủ tục\nĐăng ký thường trú,1.004194\nĐăng ký thường trú,1.004194\n"), 0o600))

	out, err := run(t, "import", "--tenant", "3", "--file", csv)
	require.NoError(t, err)
	var result types.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)

	out, err = run(t, "search", "--tenant", "3", "đăng", "ký", "thường", "trú")
	require.NoError(t, err)
	m := regexp.MustCompile(`<chunk id='(tthc-\d+)'>`).FindStringSubmatch(out)
	require.Len(t, m, 2)

	out, err = run(t, "resolve", m[1])
	require.NoError(t, err)
	var p types.Procedure
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "Đăng ký thường trú", p.Name)
	assert.Equal(t, int64(3), p.TenantID)

	_, err = run(t, "resolve", "--tenant", "4", m[1])
	assert.ErrorIs(t, err, types.ErrNotFound)

	out, err = run(t, "status", "--tenant", "3")
	require.NoError(t, err)
	var st types.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 1, st.ProceduresCount)
}

func TestImportRequiresFlags(t *testing.T) {
	setupDB(t)
	_, err := run(t, "import", "--tenant", "1")
	assert.Error(t, err)
}

func TestImportRejectsBadUser(t *testing.T) {
	setupDB(t)
	_, err := run(t, "import", "--tenant", "1", "--file", "x.csv", "--user", "nope")
	assert.ErrorContains(t, err, "invalid --user")
}

func TestImportFileTooLarge(t *testing.T) {
	setupDB(t)
	t.Setenv("GOVSENSE_IMPORT_MAX_FILE_SIZE", "4")

	csv := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(csv, []byte("name\nKhai sinh\n"), 0o600))

	_, err := run(t, "import", "--tenant", "1", "--file", csv)
	assert.ErrorContains(t, err, "limit is 4")
}
