package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"logLevel": "debug",
		"simulation": { "horizon": 250, "workers": 4 },
		"toll": { "ratePerKm": 0.2 }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 250, viper.GetInt("simulation.horizon"))
	assert.Equal(t, 4, viper.GetInt("simulation.workers"))
	assert.Equal(t, 0.2, viper.GetFloat64("toll.ratePerKm"))
	// untouched keys keep their defaults
	assert.Equal(t, 1.0, viper.GetFloat64("toll.minimumFee"))
	assert.Equal(t, filepath.Join(dir, FileName), UsedFile())
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, "", UsedFile())
	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, 0.01, viper.GetFloat64("simulation.stepFraction"))
	assert.Equal(t, 0.001, viper.GetFloat64("simulation.arrivalThreshold"))
	assert.Equal(t, 100, viper.GetInt("simulation.horizon"))
	assert.Equal(t, 1, viper.GetInt("simulation.workers"))
	assert.Equal(t, 0.05, viper.GetFloat64("toll.ratePerKm"))
	assert.Equal(t, 1.0, viper.GetFloat64("toll.minimumFee"))
	assert.Equal(t, 100.0, viper.GetFloat64("ledger.startingBalance"))
	assert.Equal(t, "", viper.GetString("scenario.path"))
	assert.Equal(t, []string{"memory"}, viper.GetStringSlice("report.backends"))
	assert.Equal(t, 5, viper.GetInt("report.summaryRows"))
	assert.Equal(t, "./runs", viper.GetString("report.memory.outputDir"))
	assert.Equal(t, false, viper.GetBool("report.memory.compressOutput"))
	assert.Equal(t, true, viper.GetBool("report.memory.export"))
	assert.Equal(t, "", viper.GetString("report.sqlite.dumpPath"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "tollsim", viper.GetString("otel.serviceName"))
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{ "simulation": `)

	err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("TOLLSIM_SIMULATION_HORIZON", "7")
	t.Setenv("TOLLSIM_LEDGER_STARTINGBALANCE", "0.5")

	dir := t.TempDir()
	writeConfig(t, dir, `{ "simulation": { "horizon": 250 } }`)
	require.NoError(t, Load(dir))

	assert.Equal(t, 7, GetSimulationConfig().Horizon)
	assert.Equal(t, 0.5, GetLedgerConfig().StartingBalance)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Cleanup(func() { os.Unsetenv("TOLLSIM_TOLL_MINIMUMFEE") })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOLLSIM_TOLL_MINIMUMFEE=2.5\n"), 0644))
	require.NoError(t, Load(dir))

	assert.Equal(t, 2.5, GetTariffConfig().MinimumFee)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetSimulationAndTariffConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, SimulationConfig{StepFraction: 0.01, ArrivalThreshold: 0.001, Horizon: 100, Workers: 1}, GetSimulationConfig())
	assert.Equal(t, TariffConfig{RatePerKm: 0.05, MinimumFee: 1.0}, GetTariffConfig())
	assert.Equal(t, LedgerConfig{StartingBalance: 100}, GetLedgerConfig())
}

func TestGetReportConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"report": {
			"backends": ["memory", "sqlite"],
			"summaryRows": 10,
			"bufferSize": 256,
			"memory": { "outputDir": "/tmp/out", "compressOutput": true, "export": false },
			"sqlite": { "dumpPath": "/tmp/run.db" }
		}
	}`)
	require.NoError(t, Load(dir))

	rc := GetReportConfig()
	assert.Equal(t, []string{"memory", "sqlite"}, rc.Backends)
	assert.Equal(t, 10, rc.SummaryRows)
	assert.Equal(t, 256, rc.BufferSize)
	assert.Equal(t, "/tmp/out", rc.Memory.OutputDir)
	assert.Equal(t, true, rc.Memory.CompressOutput)
	assert.Equal(t, false, rc.Memory.Export)
	assert.Equal(t, "/tmp/run.db", rc.SQLite.DumpPath)
}

func TestGetInfluxConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(t.TempDir()))

	ic := GetInfluxConfig()
	assert.Equal(t, "http://localhost:8086", ic.URL)
	assert.Equal(t, "tollsim", ic.Org)
	assert.Equal(t, "tollsim", ic.Bucket)
	assert.Equal(t, "./runs/influx_backup.log.gz", ic.BackupPath)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(t.TempDir()))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "tollsim", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)
	require.NoError(t, Load(dir))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}
