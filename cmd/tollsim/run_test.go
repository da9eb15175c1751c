package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tollsim/tollsim/internal/config"
	"github.com/tollsim/tollsim/internal/report"
	"github.com/tollsim/tollsim/internal/storage"
	"github.com/tollsim/tollsim/pkg/core"
)

func writeConfig(t *testing.T, dir string, cfg map[string]any) {
	t.Helper()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tollsim.cfg.json"), raw, 0644))
}

func testOptions(dir string, stdout io.Writer) options {
	return options{configDir: dir, stdout: stdout, stderr: io.Discard}
}

func TestRun_DefaultScenario(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	writeConfig(t, dir, map[string]any{
		"logsDir":    filepath.Join(dir, "logs"),
		"simulation": map[string]any{"horizon": 10},
		"report": map[string]any{
			"memory": map[string]any{"outputDir": filepath.Join(dir, "runs")},
		},
	})

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), testOptions(dir, &out)))

	s := out.String()
	assert.Contains(t, s, "Run: default (5 vehicles, 2 zones")
	assert.Contains(t, s, "movements=50")

	exports, err := filepath.Glob(filepath.Join(dir, "runs", "default_*.json"))
	require.NoError(t, err)
	assert.Len(t, exports, 1)

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "tollsim.*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRun_ScenarioFileWithSQLite(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "boxed.json")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`{
		"name": "boxed",
		"zones": [{"name": "all", "ring": [[-1, -1], [-1, 2], [2, 2], [2, -1]]}],
		"vehicles": [{"vehicleId": 0, "start": "0,0", "destination": "1,1"}]
	}`), 0644))
	dump := filepath.Join(dir, "run.db")
	writeConfig(t, dir, map[string]any{
		"logsDir":    filepath.Join(dir, "logs"),
		"simulation": map[string]any{"horizon": 5},
		"report": map[string]any{
			"backends":   []string{"memory", "sqlite"},
			"bufferSize": 4,
			"memory":     map[string]any{"export": false},
			"sqlite":     map[string]any{"dumpPath": dump},
		},
	})

	opts := testOptions(dir, nil)
	var out bytes.Buffer
	opts.stdout = &out
	opts.scenarioPath = scenarioPath
	require.NoError(t, run(context.Background(), opts))

	s := out.String()
	assert.Contains(t, s, "Run: boxed (1 vehicles, 1 zones")
	assert.Contains(t, s, "movements=5")
	assert.Regexp(t, `collections=[1-9]`, s)
	assert.Contains(t, s, "Toll Collections Over Time:")
	assert.Regexp(t, `(?m)^0\s+1\s+1\.00$`, s)
	assert.FileExists(t, dump)
}

func TestRun_MissingScenario(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	writeConfig(t, dir, map[string]any{"logsDir": filepath.Join(dir, "logs")})

	opts := testOptions(dir, io.Discard)
	opts.scenarioPath = filepath.Join(dir, "nope.json")
	assert.Error(t, run(context.Background(), opts))
}

func TestRun_UnknownBackend(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	writeConfig(t, dir, map[string]any{
		"logsDir": filepath.Join(dir, "logs"),
		"report":  map[string]any{"backends": []string{"mongo"}},
	})

	assert.Error(t, run(context.Background(), testOptions(dir, io.Discard)))
}

func TestDatabaseTotals(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	memOnly, err := storage.NewBackends(config.ReportConfig{}, config.InfluxConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, databaseTotals(memOnly, 0, logger))

	set, err := storage.NewBackends(config.ReportConfig{Backends: []string{"sqlite"}}, config.InfluxConfig{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, set.Init())
	t.Cleanup(func() { set.Close() })
	require.NoError(t, set.StartRun(&core.Run{Name: "totals", StartedAt: time.Now()}))

	require.NoError(t, set.SQLite.RecordTollCollection(core.TollCollectionRecord{VehicleID: 0, Zone: "z", Charge: 1, Time: 2}))
	require.NoError(t, set.SQLite.RecordTollCollection(core.TollCollectionRecord{VehicleID: 1, Zone: "z", Charge: 1.5, Time: 2}))
	require.NoError(t, set.SQLite.RecordTollCollection(core.TollCollectionRecord{VehicleID: 0, Zone: "z", Charge: 1, Time: 5}))

	totals := databaseTotals(set, 3.5, logger)
	assert.Equal(t, []report.TickTotal{
		{Time: 2, Count: 2, Amount: 2.5},
		{Time: 5, Count: 1, Amount: 1},
	}, totals)
	assert.NotContains(t, logs.String(), "differs")

	databaseTotals(set, 10, logger)
	assert.Contains(t, logs.String(), "Reporting database revenue differs from the run")
}
