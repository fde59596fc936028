package admin

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/l1jgo/pooling/internal/metrics"
	"github.com/l1jgo/pooling/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, queue int) (*Server, *metrics.Board, *httptest.Server) {
	t.Helper()
	board := metrics.NewBoard()
	s := newServer(board, queue, nil)
	ts := httptest.NewServer(s.Router(metrics.NewRegistry(board)))
	t.Cleanup(ts.Close)
	return s, board, ts
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealthz(t *testing.T) {
	_, board, ts := newTestServer(t, 4)
	board.Publish(&metrics.Snapshot{Tick: 12})

	resp, body := do(t, http.MethodGet, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","tick":12}`, string(body))
}

func TestPoolsRoutes(t *testing.T) {
	_, board, ts := newTestServer(t, 4)

	resp, body := do(t, http.MethodGet, ts.URL+"/pools")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"tick":0,"pooling":false,"pools":[]}`, string(body))

	board.Publish(&metrics.Snapshot{Tick: 7, Pooling: true, Pools: []pool.Stats{
		{Kind: "arrow", Available: 2, InUse: 1, Capacity: 3, Notification: "direct"},
	}})

	resp, body = do(t, http.MethodGet, ts.URL+"/pools")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list poolsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.True(t, list.Pooling)
	require.Len(t, list.Pools, 1)
	assert.Equal(t, "arrow", list.Pools[0].Kind)

	resp, body = do(t, http.MethodGet, ts.URL+"/pools/arrow")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var st pool.Stats
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, 1, st.InUse)
	assert.Equal(t, "direct", st.Notification)

	resp, _ = do(t, http.MethodGet, ts.URL+"/pools/slime")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCommandsAreQueued(t *testing.T) {
	s, _, ts := newTestServer(t, 4)

	resp, _ := do(t, http.MethodPost, ts.URL+"/reload")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, body := do(t, http.MethodPut, ts.URL+"/pooling?enabled=false")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"queued":"set_pooling","enabled":false}`, string(body))

	resp, _ = do(t, http.MethodPut, ts.URL+"/pooling?enabled=maybe")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.Len(t, s.Commands(), 2)
	assert.Equal(t, Command{Kind: CommandReload}, <-s.Commands())
	assert.Equal(t, Command{Kind: CommandSetPooling, Enabled: false}, <-s.Commands())
}

func TestFullQueueRejects(t *testing.T) {
	_, _, ts := newTestServer(t, 1)

	resp, _ := do(t, http.MethodPost, ts.URL+"/reload")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, ts.URL+"/reload")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	_, board, ts := newTestServer(t, 1)
	board.Publish(&metrics.Snapshot{Tick: 3, Pools: []pool.Stats{{Kind: "arrow", Capacity: 8}}})

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `poolsim_pool_capacity{kind="arrow"} 8`)
}

func TestWrongMethod(t *testing.T) {
	_, _, ts := newTestServer(t, 1)
	resp, _ := do(t, http.MethodGet, ts.URL+"/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
