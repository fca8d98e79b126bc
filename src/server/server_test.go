package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scm-scheduler/src/aggregator"
	"scm-scheduler/src/config"
	datasource "scm-scheduler/src/data_source"
	"scm-scheduler/src/logger"
	"scm-scheduler/src/stream"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecastCSV = `Date,PRODUCT_NAME,Forecasted_Demand
2018-01-05,Blue Pump,12.5
2018-01-05,blue pump,4
2018-01-05,Orange Pump,7
2018-01-07,Green Pump,lots
`

// newTestServer serves the CSV backend from a temp dir holding only a
// forecast file, so 2018-01-01..03 are empty days.
func newTestServer(t *testing.T) (*APIServer, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "all_pump_forecasts.csv"), []byte(forecastCSV), 0o644))

	cfg := config.Default(dir)
	log := logger.NewNopLogger("test")

	providers, err := datasource.NewProviderSetFromConfig(cfg, nil, log)
	require.NoError(t, err)
	agg, err := aggregator.NewDayAggregator(cfg, providers, log)
	require.NoError(t, err)

	api := NewAPIServer(cfg, agg, providers.Names(), log)
	api.SetIntervalUnit(time.Millisecond)

	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	return api, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scheduling/date_range?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrames reads text frames until the server closes the connection.
func readFrames(t *testing.T, conn *websocket.Conn) ([]map[string]interface{}, error) {
	t.Helper()
	var frames []map[string]interface{}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return frames, err
		}
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		frames = append(frames, frame)
	}
}

func getJSON(t *testing.T, url string, dest interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if dest != nil {
		require.NoError(t, json.Unmarshal(body, dest), string(body))
	}
	return resp.StatusCode
}

// -----------------------------------------------------------------------------

func TestDateRangeStreamsEmptyDays(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "start=2018-01-01&end=2018-01-03&interval=1")

	frames, err := readFrames(t, conn)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	require.Len(t, frames, 3)
	for i, want := range []string{"2018-01-01", "2018-01-02", "2018-01-03"} {
		f := frames[i]
		assert.Equal(t, want, f["date"])
		assert.Equal(t, map[string]interface{}{"blue_pump": 0.0, "green_pump": 0.0, "orange_pump": 0.0}, f["forecasted_demand"])
		assert.Equal(t, []interface{}{}, f["production_orders"])
		assert.Equal(t, []interface{}{}, f["production_schedule"])
		assert.Equal(t, []interface{}{}, f["station_schedule_shift_a"])
		assert.Equal(t, []interface{}{}, f["station_schedule_shift_b"])
		assert.Equal(t, 0.0, f["total_qty_scheduled"])

		stamp, ok := f["ts"].(string)
		require.True(t, ok)
		assert.True(t, strings.HasSuffix(stamp, "Z"), stamp)
		_, err := time.Parse(time.RFC3339Nano, stamp)
		assert.NoError(t, err)
	}
}

func TestDateRangeInvalidDate(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "start=not-a-date&end=2018-01-03")

	frames, _ := readFrames(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, map[string]interface{}{
		"error": "invalid_date",
		"hint":  "Use format YYYY-MM-DD for start and end",
	}, frames[0])
}

func TestDateRangeReversedRangeClosesCleanly(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "start=2018-01-03&end=2018-01-01")

	frames, err := readFrames(t, conn)
	assert.Empty(t, frames)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestDateRangeAggregationErrorFrame(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "start=2018-01-06&end=2018-01-08")

	frames, _ := readFrames(t, conn)
	require.Len(t, frames, 2)
	assert.Equal(t, "2018-01-06", frames[0]["date"])
	assert.Contains(t, frames[1]["error"], "provider forecast failed")
	assert.NotEmpty(t, frames[1]["trace"])
}

func TestStopCancelsLiveSessions(t *testing.T) {
	api, ts := newTestServer(t)
	api.SetIntervalUnit(time.Hour)
	conn := dial(t, ts, "start=2018-01-01&end=2018-01-31")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2018-01-01"`)

	var sessions struct {
		Sessions []map[string]interface{} `json:"sessions"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/sessions", &sessions))
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, "streaming", sessions.Sessions[0]["state"])
	assert.Equal(t, "2018-01-01", sessions.Sessions[0]["start"])
	assert.Equal(t, "2018-01-31", sessions.Sessions[0]["end"])

	require.NoError(t, api.Stop())
	assert.Equal(t, 0, api.ActiveSessions())

	frames, err := readFrames(t, conn)
	assert.Empty(t, frames)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestDateRangeRefusedAfterStop(t *testing.T) {
	api, ts := newTestServer(t)
	require.NoError(t, api.Stop())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scheduling/date_range?start=2018-01-01&end=2018-01-03"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"shutting_down"}`, string(body))
	assert.Equal(t, 0, api.ActiveSessions())
}

func TestAddSessionRefusedOnceStopping(t *testing.T) {
	api, _ := newTestServer(t)

	live := stream.NewSession("127.0.0.1")
	require.True(t, api.addSession(live))
	api.removeSession(live)

	require.NoError(t, api.Stop())
	assert.False(t, api.addSession(stream.NewSession("127.0.0.1")))
	assert.Equal(t, 0, api.ActiveSessions())
}

func TestClientDisconnectEndsSession(t *testing.T) {
	api, ts := newTestServer(t)
	api.SetIntervalUnit(time.Hour)
	conn := dial(t, ts, "start=2018-01-01&end=2018-01-31")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, 1, api.ActiveSessions())

	conn.Close()
	assert.Eventually(t, func() bool { return api.ActiveSessions() == 0 }, 5*time.Second, 10*time.Millisecond)
}

// -----------------------------------------------------------------------------

func TestHealthAndConfig(t *testing.T) {
	_, ts := newTestServer(t)

	var health map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/health", &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, 0.0, health["active_sessions"])
	assert.Equal(t, []interface{}{"forecast", "production_orders", "production_schedule", "shift_a", "shift_b"}, health["providers"])

	var conf map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/config", &conf))
	assert.Equal(t, 1.0, conf["default_interval_seconds"])
	assert.Equal(t, "csv", conf["storage_backend"])
	assert.Equal(t, false, conf["cache_enabled"])
	assert.Len(t, conf["product_lines"], 3)
}

func TestSnapshotEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	var snap map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/scheduling/snapshot?date=2018-01-05", &snap))
	assert.Equal(t, "2018-01-05", snap["date"])
	assert.Equal(t, map[string]interface{}{"blue_pump": 16.0, "green_pump": 0.0, "orange_pump": 7.0}, snap["forecasted_demand"])

	var bad map[string]interface{}
	require.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/scheduling/snapshot?date=05/01/2018", &bad))
	assert.Equal(t, "invalid_date", bad["error"])

	var failed map[string]interface{}
	require.Equal(t, http.StatusInternalServerError, getJSON(t, ts.URL+"/api/scheduling/snapshot?date=2018-01-07", &failed))
	assert.Contains(t, failed["error"], "provider forecast failed")
	assert.NotEmpty(t, failed["trace"])
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "scm_stream_active_sessions")
}
