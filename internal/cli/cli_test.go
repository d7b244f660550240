package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadterm/internal/devserver"
	"threadterm/internal/model"
)

type env struct {
	t          *testing.T
	configPath string
	storage    string
	backendURL string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	storage := filepath.Join(dir, "threads")

	broker, err := devserver.NewFileBroker(storage)
	require.NoError(t, err)
	srv := httptest.NewServer(devserver.NewServer(broker, devserver.MockSuggester{}, "/api", zerolog.Nop()).Engine())
	t.Cleanup(srv.Close)

	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
data_dir = %q

[backend]
uri = %q

[log]
level = "error"
file = %q

[server]
storage_dir = %q
`, filepath.Join(dir, "data"), srv.URL+"/api", filepath.Join(dir, "threadterm.log"), storage)), 0o644))

	e := &env{t: t, configPath: configPath, storage: storage, backendURL: srv.URL + "/api"}
	out, err := e.threadd("seed", "t1")
	require.NoError(t, err)
	require.Contains(t, out, "seeded thread t1")
	return e
}

func (e *env) threadterm(stdin string, args ...string) (string, error) {
	e.t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--config", e.configPath, "--env-file", filepath.Join(e.t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func (e *env) threadd(args ...string) (string, error) {
	e.t.Helper()
	cmd := NewServerCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append(args, "--config", e.configPath, "--env-file", filepath.Join(e.t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestMessagesJSON(t *testing.T) {
	e := newEnv(t)
	out, err := e.threadterm("", "messages", "t1", "-o", "json")
	require.NoError(t, err)

	var payloads []model.Payload
	require.NoError(t, json.Unmarshal([]byte(out), &payloads))
	require.Len(t, payloads, 4)
	assert.Equal(t, 1, payloads[0].Order)
	assert.Equal(t, []int{}, payloads[0].ArchiveFor)
}

func TestMessagesText(t *testing.T) {
	e := newEnv(t)
	out, err := e.threadterm("", "messages", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "ORDER")
	assert.Contains(t, out, "goroutine")
}

func TestMessageAndInstruction(t *testing.T) {
	e := newEnv(t)
	out, err := e.threadterm("", "message", "t1", "2", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "role: assistant")

	out, err = e.threadterm("", "instruction", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "Summarize the selected messages")

	_, err = e.threadterm("", "message", "t1", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSuggest(t *testing.T) {
	e := newEnv(t)
	out, err := e.threadterm("", "suggest", "t1", "1-2", "-o", "json")
	require.NoError(t, err)

	var p model.Payload
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, []int{1, 2}, p.ArchiveFor)

	_, err = e.threadterm("", "suggest", "t1", "x")
	assert.Error(t, err)
}

func TestArchiveAndHistory(t *testing.T) {
	e := newEnv(t)

	out, err := e.threadterm("", "archive", "t1", "1,3", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Archived 1,3 of t1.")

	_, err = os.Stat(filepath.Join(e.storage, "t1", "archive_000001.json"))
	require.NoError(t, err)

	out, err = e.threadterm("", "history", "t1", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "thread_uid: t1")

	out, err = e.threadterm("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "1,3")
}

func TestArchiveDeclined(t *testing.T) {
	e := newEnv(t)

	out, err := e.threadterm("n\n", "archive", "t1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Archive cancelled.")

	_, err = os.Stat(filepath.Join(e.storage, "t1", "archive_000001.json"))
	assert.True(t, os.IsNotExist(err))

	out, err = e.threadterm("", "history", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestArchiveUnknownOrder(t *testing.T) {
	e := newEnv(t)
	_, err := e.threadterm("", "archive", "t1", "42", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no message 42")
}

func TestPersist(t *testing.T) {
	e := newEnv(t)
	out, err := e.threadterm("", "persist", "t1", "--order", "5", "--role", "user", "--text", "one more", "-o", "json")
	require.NoError(t, err)

	var payloads []model.Payload
	require.NoError(t, json.Unmarshal([]byte(out), &payloads))
	require.Len(t, payloads, 1)
	assert.Equal(t, 5, payloads[0].Order)

	batch := `[{"thread_uid":"t1","order":6,"role":"assistant","text":"ok","archive_for":[]}]`
	_, err = e.threadterm(batch, "persist", "t1", "--file", "-")
	require.NoError(t, err)

	out, err = e.threadterm("", "messages", "t1", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &payloads))
	assert.Len(t, payloads, 6)

	_, err = e.threadterm("", "persist", "t1", "--order", "7", "--role", "robot", "--text", "x")
	assert.Error(t, err)
}

func TestPersistFileMustMatchThread(t *testing.T) {
	e := newEnv(t)
	batch := `[{"thread_uid":"t2","order":6,"role":"assistant","text":"elsewhere","archive_for":[]}]`
	_, err := e.threadterm(batch, "persist", "t1", "--file", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to thread t2, not t1")

	_, err = e.threadterm("", "messages", "t2")
	assert.Error(t, err, "nothing was written to t2")
}

func TestUnknownOutputFormat(t *testing.T) {
	e := newEnv(t)
	_, err := e.threadterm("", "messages", "t1", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestBackendFlagOverridesConfig(t *testing.T) {
	e := newEnv(t)
	_, err := e.threadterm("", "messages", "t1", "--backend", "ftp://nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}
