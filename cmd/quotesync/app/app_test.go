package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

func testConfig(t *testing.T, remoteURL string) *Config {
	t.Helper()
	return &Config{
		Format:       "json",
		DataDir:      t.TempDir(),
		SessionDir:   t.TempDir(),
		RemoteURL:    remoteURL,
		RemoteLimit:  15,
		Policy:       "remote-precedence",
		SyncInterval: time.Minute,
		LogOutput:    "discard",
		LogLevel:     "error",
	}
}

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	logger := zerolog.Nop()
	a, err := New("1.2.3", "abc123", "2026-01-01", "test", WithConfig(cfg), WithLogger(&logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

// run executes one CLI invocation against a and returns stdout.
func run(t *testing.T, a *App, args ...string) (string, error) {
	t.Helper()
	cmd := a.createRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func remoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"title":"Be bold"},{"id":2,"title":"Stay calm"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""))
	assert.Equal(t, "1.2.3", a.Version())
	assert.Equal(t, "abc123", a.Commit())
	assert.Equal(t, "2026-01-01", a.Date())
	assert.Equal(t, "test", a.BuiltBy())
	assert.Equal(t, "json", a.OutputFormat())
	assert.NotNil(t, a.Logger())
}

func TestClientSingleton(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""))
	c1, err := a.Client()
	require.NoError(t, err)
	c2, err := a.Client()
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestClientRejectsUnknownPolicy(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Policy = "coin-flip"
	_, err := newTestApp(t, cfg).Client()
	assert.True(t, errors.IsValidationError(err))
}

func TestAddListAndFilter(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""))

	out, err := run(t, a, "add", "Stay", "calm", "--category", "Zen")
	require.NoError(t, err)
	var added records.Record
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, records.Record{Text: "Stay calm", Category: "Zen"}, added)

	_, err = run(t, a, "filter", "Zen")
	require.NoError(t, err)

	out, err = run(t, a, "list")
	require.NoError(t, err)
	var listed records.Collection
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, records.Collection{{Text: "Stay calm", Category: "Zen"}}, listed)

	out, err = run(t, a, "next")
	require.NoError(t, err)
	assert.Contains(t, out, "Stay calm")

	_, err = run(t, a, "remove", "stay calm")
	require.NoError(t, err)
	_, err = run(t, a, "remove", "stay calm")
	assert.True(t, errors.IsNotFound(err))
}

func TestCollectionPersistsAcrossInvocations(t *testing.T) {
	cfg := testConfig(t, "")
	_, err := run(t, newTestApp(t, cfg), "add", "Persist me")
	require.NoError(t, err)

	// a fresh app over the same data directory
	out, err := run(t, newTestApp(t, cfg), "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Persist me")
}

func TestImportExport(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""))
	dir := t.TempDir()

	in := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(in, []byte("- text: Imported\n  category: Zen\n"), 0o600))
	_, err := run(t, a, "import", in)
	require.NoError(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"text":"no category"}]`), 0o600))
	_, err = run(t, a, "import", bad)
	assert.True(t, errors.IsMalformedImport(err))

	out := filepath.Join(dir, "out.json")
	_, err = run(t, a, "export", "--file", out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	decoded, err := records.Decode(data, records.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, decoded, records.Record{Text: "Imported", Category: "Zen"})
}

func TestSyncResolveUndo(t *testing.T) {
	a := newTestApp(t, testConfig(t, remoteServer(t).URL))

	_, err := run(t, a, "undo")
	assert.True(t, errors.IsNoBackup(err))

	_, err = run(t, a, "add", "Be bold", "--category", "Motivation")
	require.NoError(t, err)
	client, err := a.Client()
	require.NoError(t, err)
	before := len(client.All())

	out, err := run(t, a, "sync")
	require.NoError(t, err)
	var result pkgsync.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, records.Collection{{Text: "Stay calm", Category: "Server"}}, result.Added)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "Motivation", result.Conflicts[0].LocalCategory)

	out, err = run(t, a, "conflicts")
	require.NoError(t, err)
	var conflicts []reconcile.Conflict
	require.NoError(t, json.Unmarshal([]byte(out), &conflicts))
	assert.Len(t, conflicts, 1)

	_, err = run(t, a, "resolve", "Be bold", "--choice", "keep-local")
	require.NoError(t, err)
	rec, err := client.Get("be bold")
	require.NoError(t, err)
	assert.Equal(t, "Motivation", rec.Category)
	assert.Empty(t, client.Conflicts())

	_, err = run(t, a, "undo")
	require.NoError(t, err)
	assert.Len(t, client.All(), before)

	out, err = run(t, a, "status")
	require.NoError(t, err)
	var status pkgsync.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, pkgsync.Completed, status.State)
	assert.Equal(t, 1, status.Passes)
}

func TestSyncWithoutRemote(t *testing.T) {
	_, err := run(t, newTestApp(t, testConfig(t, "")), "sync")
	assert.Error(t, err)
}

func TestInvalidFormatFlag(t *testing.T) {
	_, err := run(t, newTestApp(t, testConfig(t, "")), "list", "-o", "xml")
	assert.True(t, errors.IsValidationError(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, newTestApp(t, testConfig(t, "")), "version", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "quotesync 1.2.3")
	assert.Contains(t, out, "abc123")
}
