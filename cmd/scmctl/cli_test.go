package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"scm-scheduler/src/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeFixture lays out a config and a small CSV data dir under t.TempDir().
// extra is appended to the YAML config.
func writeFixture(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "Data")
	require.NoError(t, os.Mkdir(dataDir, 0o755))

	files := map[string]string{
		"all_pump_forecasts.csv": "Date,PRODUCT_NAME,Forecasted_Demand\n" +
			"2018-01-01,Blue Pump,10.9\n" +
			"2018-01-01,GREEN PUMP,3\n" +
			"2018-01-02,Orange Pump,5\n",
		"production_orders.csv": "PO_Number,Date,Product_Name,Quantity\n" +
			"PO-1,2018-01-01,Blue Pump,20\n" +
			"PO-2,2018-01-02,Orange Pump,5\n",
		"production_schedule.csv": "PO_Number,Scheduled_Date,Scheduled_Quantity\n" +
			"PO-1,2018-01-01,12\n" +
			"PO-1,2018-01-01,8.5\n" +
			"PO-2,2018-01-02,5\n",
		"station_schedule_shift_a.csv": "PO_Number,Scheduled_Date,Event_Datetime,Station,Shift\n" +
			"PO-1,2018-01-01,2018-01-01 06:00:00,Casting,A\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644))
	}

	conf := fmt.Sprintf("name: scm-scheduler\nhost: 127.0.0.1\nport: 5000\nlog_level: ERROR\nstorage:\n  backend: csv\n  data_dir: %s\n", dataDir)
	for _, e := range extra {
		conf += e
	}
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))
	return path
}

type snapshotOut struct {
	Date               string                   `json:"date"`
	ForecastedDemand   map[string]int64         `json:"forecasted_demand"`
	ProductionOrders   []map[string]interface{} `json:"production_orders"`
	ProductionSchedule []map[string]interface{} `json:"production_schedule"`
	TotalQtyScheduled  int64                    `json:"total_qty_scheduled"`
	ShiftA             []map[string]interface{} `json:"station_schedule_shift_a"`
	ShiftB             []map[string]interface{} `json:"station_schedule_shift_b"`
}

func TestSnapshotFromCSV(t *testing.T) {
	configPath := writeFixture(t)

	out, err := executeCLI(t, "snapshot", "--config", configPath, "--date", "2018-01-01")
	require.NoError(t, err)

	var snap snapshotOut
	require.NoError(t, json.Unmarshal([]byte(out), &snap), out)
	assert.Equal(t, "2018-01-01", snap.Date)
	assert.Equal(t, map[string]int64{"blue_pump": 10, "green_pump": 3, "orange_pump": 0}, snap.ForecastedDemand)
	assert.Equal(t, int64(20), snap.TotalQtyScheduled)
	require.Len(t, snap.ProductionOrders, 1)
	assert.Equal(t, "PO-1", snap.ProductionOrders[0]["PO_Number"])
	require.Len(t, snap.ShiftA, 1)
	assert.Equal(t, "2018-01-01 06:00:00", snap.ShiftA[0]["Event_Datetime"])
	assert.NotNil(t, snap.ShiftB)
	assert.Empty(t, snap.ShiftB)
}

func TestImportThenSnapshotFromSQLite(t *testing.T) {
	configPath := writeFixture(t)
	dbPath := filepath.Join(t.TempDir(), "scheduling.db")

	out, err := executeCLI(t, "import", "--config", configPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "forecast: imported 3 rows into vw_all_pump_forecasts_updated")
	assert.Contains(t, out, "production_schedule: imported 3 rows into vw_production_schedule")
	assert.Contains(t, out, "shift_b: imported 0 rows into vw_station_schedule_shift_b")

	csvOut, err := executeCLI(t, "snapshot", "--config", configPath, "--date", "2018-01-01")
	require.NoError(t, err)
	sqlOut, err := executeCLI(t, "snapshot", "--config", configPath, "--db", dbPath, "--date", "2018-01-01")
	require.NoError(t, err)

	var fromCSV, fromSQL snapshotOut
	require.NoError(t, json.Unmarshal([]byte(csvOut), &fromCSV))
	require.NoError(t, json.Unmarshal([]byte(sqlOut), &fromSQL))

	assert.Equal(t, fromCSV.ForecastedDemand, fromSQL.ForecastedDemand)
	assert.Equal(t, fromCSV.TotalQtyScheduled, fromSQL.TotalQtyScheduled)
	assert.Equal(t, fromCSV.ProductionOrders, fromSQL.ProductionOrders)
	assert.Equal(t, fromCSV.ShiftA, fromSQL.ShiftA)
	assert.NotNil(t, fromSQL.ShiftB)
	assert.Empty(t, fromSQL.ShiftB)
}

func TestImportHeaderOnlyFileServesEmptyDays(t *testing.T) {
	configPath := writeFixture(t)
	dataDir := filepath.Join(filepath.Dir(configPath), "Data")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "station_schedule_shift_b.csv"),
		[]byte("PO_Number,Scheduled_Date,Event_Datetime,Station,Shift\n"), 0o644))
	dbPath := filepath.Join(t.TempDir(), "scheduling.db")

	out, err := executeCLI(t, "import", "--config", configPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "shift_b: imported 0 rows into vw_station_schedule_shift_b")

	for _, date := range []string{"2018-01-01", "2018-01-02", "2019-06-30"} {
		sqlOut, err := executeCLI(t, "snapshot", "--config", configPath, "--db", dbPath, "--date", date)
		require.NoError(t, err, date)

		var snap snapshotOut
		require.NoError(t, json.Unmarshal([]byte(sqlOut), &snap))
		assert.Equal(t, date, snap.Date)
		assert.NotNil(t, snap.ShiftB)
		assert.Empty(t, snap.ShiftB)
	}
}

func TestImportDropsCachedRows(t *testing.T) {
	mr := miniredis.RunT(t)
	configPath := writeFixture(t, fmt.Sprintf("cache:\n  enabled: true\n  redis_addr: %s\n  ttl_seconds: 300\n", mr.Addr()))
	dbPath := filepath.Join(t.TempDir(), "scheduling.db")

	stale := cache.KeyProviderRows + "shift_a:2018-01-01"
	other := "scm:unrelated"
	require.NoError(t, mr.Set(stale, `[{"Station":"old"}]`))
	require.NoError(t, mr.Set(other, "keep"))

	_, err := executeCLI(t, "import", "--config", configPath, "--db", dbPath)
	require.NoError(t, err)

	assert.False(t, mr.Exists(stale))
	assert.True(t, mr.Exists(other))
}

func TestSnapshotRejectsBadDate(t *testing.T) {
	configPath := writeFixture(t)

	_, err := executeCLI(t, "snapshot", "--config", configPath, "--date", "01/01/2018")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestSnapshotNeedsDate(t *testing.T) {
	configPath := writeFixture(t)

	_, err := executeCLI(t, "snapshot", "--config", configPath)
	assert.Error(t, err)
}

func TestMissingConfig(t *testing.T) {
	_, err := executeCLI(t, "snapshot", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--date", "2018-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestHealthUnreachable(t *testing.T) {
	_, err := executeCLI(t, "health", "--addr", "127.0.0.1:1", "--timeout", "200ms")
	assert.Error(t, err)
}
