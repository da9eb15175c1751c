package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/tollsim/tollsim/internal/config"
	"github.com/tollsim/tollsim/internal/dispatcher"
	"github.com/tollsim/tollsim/internal/ledger"
	"github.com/tollsim/tollsim/internal/logging"
	intOtel "github.com/tollsim/tollsim/internal/otel"
	"github.com/tollsim/tollsim/internal/report"
	"github.com/tollsim/tollsim/internal/scenario"
	"github.com/tollsim/tollsim/internal/sim"
	"github.com/tollsim/tollsim/internal/storage"
	"github.com/tollsim/tollsim/internal/toll"
	"github.com/tollsim/tollsim/pkg/core"
)

type options struct {
	configDir    string
	scenarioPath string
	stdout       io.Writer
	stderr       io.Writer
}

// services holds what setup built and teardown releases.
type services struct {
	logs     *logging.SlogManager
	logger   *slog.Logger
	zlog     zerolog.Logger
	provider *intOtel.Provider
	logFile  *os.File
	engine   atomic.Pointer[sim.Engine]
}

func (s *services) now() int {
	if e := s.engine.Load(); e != nil {
		return e.Now()
	}
	return 0
}

func setup(ctx context.Context, opts options, runName string, started time.Time) (*services, error) {
	s := &services{logs: logging.NewSlogManager()}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	f, err := os.OpenFile(logging.LogFilePath(logsDir, started), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	s.logFile = f

	oc := config.GetOTelConfig()
	s.provider, err = intOtel.New(ctx, intOtel.Config{
		Enabled:      oc.Enabled,
		ServiceName:  oc.ServiceName,
		BatchTimeout: oc.BatchTimeout,
		LogWriter:    f,
		Endpoint:     oc.Endpoint,
		Insecure:     oc.Insecure,
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set up OpenTelemetry: %w", err)
	}

	level := config.GetString("logLevel")
	s.logs.Setup(logging.Options{
		Console:     opts.stderr,
		File:        f,
		Level:       level,
		Provider:    s.provider.LoggerProvider(),
		ServiceName: oc.ServiceName,
		Context:     logging.RunContext(runName, s.now),
	})
	s.logger = s.logs.Logger()
	if s.provider.Enabled() {
		s.logger.Info("OpenTelemetry log export enabled", "serviceName", oc.ServiceName, "endpoint", oc.Endpoint)
	}
	s.zlog = logging.NewZerolog(f, level)
	return s, nil
}

func (s *services) teardown(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.logs.Flush(flushCtx); err != nil {
		s.logger.Warn("Failed to flush logs", "error", err)
	}
	if err := s.provider.Shutdown(flushCtx); err != nil {
		s.logger.Warn("Failed to shut down OpenTelemetry", "error", err)
	}
	s.logFile.Close()
}

func loadScenario(path string) (scenario.Compiled, error) {
	sc := scenario.Default()
	if path != "" {
		var err error
		if sc, err = scenario.Load(path); err != nil {
			return scenario.Compiled{}, err
		}
	}
	return sc.Build()
}

// databaseTotals reads the per-tick toll totals from the reporting database
// when the sqlite backend is enabled, and checks its revenue against the
// engine's. It returns nil when there is no database to read.
func databaseTotals(set *storage.Set, revenue float64, logger *slog.Logger) []report.TickTotal {
	if set.SQLite == nil {
		return nil
	}
	stored, err := set.SQLite.Revenue()
	if err != nil {
		logger.Error("Failed to read revenue from reporting database", "error", err)
		return nil
	}
	if math.Abs(stored-revenue) > 1e-6 {
		logger.Warn("Reporting database revenue differs from the run", "database", stored, "run", revenue)
	}

	rows, err := set.SQLite.CollectionsByTime()
	if err != nil {
		logger.Error("Failed to read toll totals from reporting database", "error", err)
		return nil
	}
	totals := make([]report.TickTotal, len(rows))
	for i, r := range rows {
		totals[i] = report.TickTotal(r)
	}
	return totals
}

func run(ctx context.Context, opts options) error {
	if err := config.Load(opts.configDir); err != nil {
		return err
	}

	scenarioPath := opts.scenarioPath
	if scenarioPath == "" {
		scenarioPath = config.GetString("scenario.path")
	}
	compiled, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}

	started := time.Now().UTC()
	svc, err := setup(ctx, opts, compiled.Name, started)
	if err != nil {
		return err
	}
	defer svc.teardown(ctx)
	logger := svc.logger

	if used := config.UsedFile(); used != "" {
		logger.Info("Config loaded", "file", used)
	} else {
		logger.Info("No config file found, using defaults", "dir", opts.configDir)
	}

	simCfg := config.GetSimulationConfig()
	params := sim.Params{
		StepFraction:     simCfg.StepFraction,
		ArrivalThreshold: simCfg.ArrivalThreshold,
		Horizon:          simCfg.Horizon,
		Workers:          simCfg.Workers,
	}
	tc := config.GetTariffConfig()
	tariff := toll.Tariff{RatePerKm: tc.RatePerKm, MinimumFee: tc.MinimumFee}

	accounts, err := ledger.New(compiled.VehicleIDs(), config.GetLedgerConfig().StartingBalance)
	if err != nil {
		logger.Error("Failed to create ledger", "error", err)
		return err
	}

	d, err := dispatcher.New(logger)
	if err != nil {
		return err
	}
	engine, err := sim.NewEngine(sim.Config{
		Params: params,
		Tariff: tariff,
		Zones:  compiled.Zones,
		Trips:  compiled.Trips,
		Ledger: accounts,
		Sink:   d,
		Logger: logger,
	})
	if err != nil {
		d.Close()
		logger.Error("Invalid simulation setup", "error", err)
		return err
	}
	svc.engine.Store(engine)

	reportCfg := config.GetReportConfig()
	backends, err := storage.NewBackends(reportCfg, config.GetInfluxConfig(), svc.zlog)
	if err != nil {
		d.Close()
		return err
	}
	if err := backends.Init(); err != nil {
		d.Close()
		logger.Error("Failed to initialize report backends", "error", err)
		return err
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Error("Failed to close report backends", "error", err)
		}
	}()
	logger.Info("Report backends initialized", "backends", backends.Names())

	runMeta := &core.Run{
		Name:      compiled.Name,
		StartedAt: started,
		Horizon:   params.Horizon,
		Vehicles:  len(compiled.Trips),
		Zones:     len(compiled.Zones),
		Params: map[string]any{
			"stepFraction":     params.StepFraction,
			"arrivalThreshold": params.ArrivalThreshold,
			"horizon":          params.Horizon,
			"workers":          params.Workers,
			"ratePerKm":        tariff.RatePerKm,
			"minimumFee":       tariff.MinimumFee,
			"startingBalance":  config.GetLedgerConfig().StartingBalance,
			"version":          Version,
		},
	}
	if err := backends.StartRun(runMeta); err != nil {
		d.Close()
		logger.Error("Failed to start run", "error", err)
		return err
	}
	backends.Attach(d, reportCfg.BufferSize)

	summary, runErr := engine.Run(ctx)
	d.Close()

	if err := backends.EndRun(core.RunResult{EndTime: engine.Now(), Balances: summary.Balances}); err != nil {
		logger.Error("Failed to finish run", "error", err)
	}
	if path := backends.Memory.ExportedFilePath(); path != "" {
		logger.Info("Run exported", "path", path)
	}

	if err := report.Summary(opts.stdout, report.Data{
		Name:        compiled.Name,
		Zones:       len(compiled.Zones),
		RoadKm:      compiled.RoadKm(),
		Summary:     summary,
		Movements:   backends.Memory.Movements(),
		Collections: backends.Memory.TollCollections(),
		Totals:      databaseTotals(backends, summary.Revenue, logger),
		Rows:        reportCfg.SummaryRows,
	}); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
