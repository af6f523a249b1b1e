package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/agentstation/quotesync"
	"github.com/agentstation/quotesync/internal/server/events"
	"github.com/agentstation/quotesync/internal/server/response"
	ws "github.com/agentstation/quotesync/internal/server/websocket"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/records"
	"github.com/agentstation/quotesync/pkg/remote/mocks"
)

type fixture struct {
	server *Server
	remote *mocks.MockClient
	http   *httptest.Server
}

func newFixture(t *testing.T, seed records.Collection) *fixture {
	t.Helper()
	logging.DisableLoggingForTest(t)

	rc := mocks.NewMockClient(gomock.NewController(t))
	client, err := quotesync.New(
		quotesync.WithSeed(seed),
		quotesync.WithRemote(rc),
		quotesync.WithSubmitOnAdd(false),
	)
	require.NoError(t, err)

	logger := zerolog.Nop()
	srv := New(client, DefaultConfig(), &logger)
	srv.Start()

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = client.Close()
	})
	return &fixture{server: srv, remote: rc, http: hs}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, response.Response) {
	t.Helper()
	req, err := http.NewRequest(method, f.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env response.Response
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func dataMap(t *testing.T, env response.Response) map[string]any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	require.True(t, ok, "expected object data, got %T", env.Data)
	return m
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	resp, env := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", dataMap(t, env)["status"])
}

func TestRecordsCRUD(t *testing.T) {
	f := newFixture(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})

	resp, env := f.do(t, http.MethodPost, "/api/v1/records", `{"text":"Stay calm","category":"Zen"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, dataMap(t, env)["created"])

	resp, env = f.do(t, http.MethodGet, "/api/v1/records", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), dataMap(t, env)["count"])

	resp, env = f.do(t, http.MethodGet, "/api/v1/records?category=Zen", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), dataMap(t, env)["count"])

	resp, _ = f.do(t, http.MethodGet, "/api/v1/records/stay%20calm", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/v1/records/Stay%20Calm", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = f.do(t, http.MethodGet, "/api/v1/records", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), dataMap(t, env)["count"], "cache must be cleared by record events")

	resp, env = f.do(t, http.MethodDelete, "/api/v1/records/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/records", `{"text":"  ","category":"Zen"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCurrentNextAndFilter(t *testing.T) {
	f := newFixture(t, records.Collection{
		{Text: "Be bold", Category: "Motivation"},
		{Text: "Stay calm", Category: "Zen"},
	})

	resp, _ := f.do(t, http.MethodPut, "/api/v1/filter", `{"category":"Zen"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := f.do(t, http.MethodPost, "/api/v1/records/next", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Stay calm", dataMap(t, env)["text"])

	resp, env = f.do(t, http.MethodGet, "/api/v1/records/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Stay calm", dataMap(t, env)["text"])

	resp, env = f.do(t, http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Motivation", "Zen"}, dataMap(t, env)["categories"])
}

func TestSyncConflictsAndUndo(t *testing.T) {
	f := newFixture(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})
	f.remote.EXPECT().List(gomock.Any(), gomock.Any()).Return([]records.Record{
		{Text: "Be bold", Category: "Server"},
		{Text: "Stay calm", Category: "Server"},
	}, nil)

	resp, env := f.do(t, http.MethodPost, "/api/v1/undo", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NO_BACKUP", env.Error.Code)

	resp, env = f.do(t, http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1 added, 1 conflicts", dataMap(t, env)["summary"])

	resp, env = f.do(t, http.MethodGet, "/api/v1/conflicts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), dataMap(t, env)["count"])

	resp, _ = f.do(t, http.MethodPost, "/api/v1/conflicts/be%20bold/resolve", `{"choice":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = f.do(t, http.MethodPost, "/api/v1/conflicts/be%20bold/resolve", `{"choice":"keep-local"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), dataMap(t, env)["remaining"])

	resp, env = f.do(t, http.MethodGet, "/api/v1/records/be%20bold", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Motivation", dataMap(t, env)["category"])

	resp, _ = f.do(t, http.MethodPost, "/api/v1/undo", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = f.do(t, http.MethodGet, "/api/v1/sync/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", dataMap(t, env)["state"])
}

func TestSyncErrors(t *testing.T) {
	t.Run("remote unavailable", func(t *testing.T) {
		f := newFixture(t, nil)
		f.remote.EXPECT().List(gomock.Any(), gomock.Any()).
			Return(nil, errors.NewRemoteUnavailableError("list", "http://remote", 503, nil))

		resp, env := f.do(t, http.MethodPost, "/api/v1/sync", "")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "REMOTE_UNAVAILABLE", env.Error.Code)
	})

	t.Run("already running", func(t *testing.T) {
		f := newFixture(t, nil)
		started := make(chan struct{})
		release := make(chan struct{})
		f.remote.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, int) ([]records.Record, error) {
				close(started)
				<-release
				return nil, nil
			})

		done := make(chan int)
		go func() {
			resp, err := http.Post(f.http.URL+"/api/v1/sync", "application/json", nil)
			if err != nil {
				done <- 0
				return
			}
			resp.Body.Close()
			done <- resp.StatusCode
		}()
		<-started

		resp, env := f.do(t, http.MethodPost, "/api/v1/sync", "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "SYNC_IN_PROGRESS", env.Error.Code)

		close(release)
		assert.Equal(t, http.StatusOK, <-done)
	})

	t.Run("bad limit", func(t *testing.T) {
		f := newFixture(t, nil)
		resp, _ := f.do(t, http.MethodPost, "/api/v1/sync?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestImportExport(t *testing.T) {
	f := newFixture(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})

	resp, env := f.do(t, http.MethodPost, "/api/v1/import", `[{"text":"Stay calm"}]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/import?format=yaml", "- text: Stay calm\n  category: Zen\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	httpResp, err := http.Get(f.http.URL + "/api/v1/export?format=yaml")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Equal(t, "application/yaml", httpResp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err = buf.ReadFrom(httpResp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Stay calm")

	resp, _ = f.do(t, http.MethodGet, "/api/v1/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})
	f.do(t, http.MethodGet, "/api/v1/records", "")

	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "quotesync_records 1")
	assert.Contains(t, buf.String(), `route="/api/v1/records`)
}

func TestWebSocketReceivesSyncEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.EXPECT().List(gomock.Any(), gomock.Any()).Return([]records.Record{
		{Text: "Stay calm", Category: "Server"},
	}, nil)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/api/v1/updates/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return f.server.wsHub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	httpResp, _ := f.do(t, http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var msg ws.Message
	seen := map[string]bool{}
	for !seen[string(events.SyncCompleted)] {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&msg))
		seen[msg.Type] = true
	}
	assert.True(t, seen[string(events.RecordAdded)])
}

func TestShutdownWithoutStart(t *testing.T) {
	logging.DisableLoggingForTest(t)
	client, err := quotesync.New()
	require.NoError(t, err)
	defer client.Close()

	logger := zerolog.Nop()
	srv := New(client, DefaultConfig(), &logger)
	assert.NoError(t, srv.Shutdown(context.Background()))
	assert.Equal(t, "localhost:8080", srv.Addr())
}
