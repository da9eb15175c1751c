// Package influxstorage writes run records to InfluxDB as time-series points.
// When the server cannot be reached the points are appended as gzip line
// protocol to a backup file for later import.
package influxstorage

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/tollsim/tollsim/internal/config"
	"github.com/tollsim/tollsim/pkg/core"
)

// Measurement names.
const (
	MeasurementMovement = "vehicle_position"
	MeasurementToll     = "toll_collection"
	MeasurementBalance  = "account_balance"
)

// TickDuration maps one simulated tick onto the point timeline, anchored at
// the run's start time.
const TickDuration = time.Second

const pingTimeout = 5 * time.Second

// ErrNoRun is returned when records arrive outside StartRun/EndRun.
var ErrNoRun = errors.New("no run started")

// Backend is the InfluxDB reporting backend.
type Backend struct {
	cfg config.InfluxConfig
	log zerolog.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	backupFile   *os.File
	BackupWriter *gzip.Writer

	mu      sync.Mutex
	IsValid bool
	run     *core.Run
}

// New creates the backend. Init connects.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg: cfg,
		log: log.With().Str("backend", "influx").Logger(),
	}
}

// Init connects to InfluxDB, falling back to the backup file when the
// server is unreachable or no URL is configured.
func (b *Backend) Init() error {
	if b.cfg.URL != "" {
		b.client = influxdb2.NewClientWithOptions(
			b.cfg.URL,
			b.cfg.Token,
			influxdb2.DefaultOptions().
				SetBatchSize(2500).
				SetFlushInterval(1000),
		)

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		running, err := b.client.Ping(ctx)
		cancel()
		b.IsValid = err == nil && running
		if err != nil {
			b.log.Debug().Err(err).Str("url", b.cfg.URL).Msg("InfluxDB ping failed")
		}
	}

	if b.IsValid {
		if err := b.ensureBucket(context.Background()); err != nil {
			return err
		}
		b.createWriter()
		b.log.Info().Str("bucket", b.cfg.Bucket).Msg("InfluxDB client initialized")
		return nil
	}

	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
	return b.openBackup()
}

func (b *Backend) openBackup() error {
	if b.cfg.BackupPath == "" {
		return errors.New("influxDB unreachable and no backup path configured")
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.BackupWriter = gzip.NewWriter(file)
	b.log.Warn().Str("backupPath", b.cfg.BackupPath).Msg("InfluxDB unavailable, writing to backup file")
	return nil
}

func (b *Backend) ensureBucket(ctx context.Context) error {
	org, err := b.client.OrganizationsAPI().FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.log.Info().Str("org", b.cfg.Org).Msg("Organization not found, creating")
		org, err = b.client.OrganizationsAPI().CreateOrganizationWithName(ctx, b.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %q: %w", b.cfg.Org, err)
		}
	}

	if _, err := b.client.BucketsAPI().FindBucketByName(ctx, b.cfg.Bucket); err != nil {
		b.log.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = b.client.BucketsAPI().CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %q: %w", b.cfg.Bucket, err)
		}
	}
	return nil
}

func (b *Backend) createWriter() {
	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			b.log.Error().Err(writeErr).Msg("Error sending data to InfluxDB")
		}
	}(b.writer.Errors())
}

// Close flushes pending points and releases the client or backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writer != nil {
		b.writer.Flush()
		b.writer = nil
	}
	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
	var errs []error
	if b.BackupWriter != nil {
		errs = append(errs, b.BackupWriter.Close())
		b.BackupWriter = nil
	}
	if b.backupFile != nil {
		errs = append(errs, b.backupFile.Close())
		b.backupFile = nil
	}
	return errors.Join(errs...)
}

func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.run = run
	return nil
}

// EndRun writes one balance point per vehicle at the end time and flushes.
func (b *Backend) EndRun(result core.RunResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}

	at := b.tickTime(result.EndTime)
	for id, bal := range result.Balances {
		p := influxdb2_write.NewPointWithMeasurement(MeasurementBalance).
			AddTag("run", b.run.Name).
			AddTag("vehicle", strconv.Itoa(id)).
			AddField("balance", bal).
			SetTime(at)
		if err := b.writePoint(p); err != nil {
			return err
		}
	}

	if b.writer != nil {
		b.writer.Flush()
	}
	if b.BackupWriter != nil {
		if err := b.BackupWriter.Flush(); err != nil {
			return fmt.Errorf("error flushing InfluxDB backup file: %w", err)
		}
	}
	return nil
}

func (b *Backend) RecordMovement(r core.MovementRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	return b.writePoint(MovementPoint(b.run, r, b.tickTime(r.Time)))
}

func (b *Backend) RecordTollCollection(r core.TollCollectionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	return b.writePoint(TollPoint(b.run, r, b.tickTime(r.Time)))
}

func (b *Backend) tickTime(tick int) time.Time {
	return b.run.StartedAt.Add(time.Duration(tick) * TickDuration)
}

// MovementPoint builds the point for a movement record.
func MovementPoint(run *core.Run, r core.MovementRecord, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementMovement).
		AddTag("run", run.Name).
		AddTag("vehicle", strconv.Itoa(r.VehicleID)).
		AddField("lat", r.Position.Lat).
		AddField("lon", r.Position.Lon).
		AddField("tick", r.Time).
		SetTime(at)
}

// TollPoint builds the point for a toll collection record.
func TollPoint(run *core.Run, r core.TollCollectionRecord, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementToll).
		AddTag("run", run.Name).
		AddTag("vehicle", strconv.Itoa(r.VehicleID)).
		AddTag("zone", r.Zone).
		AddField("charge", r.Charge).
		AddField("tick", r.Time).
		SetTime(at)
}

// writePoint sends to InfluxDB or the backup file. Caller holds b.mu.
func (b *Backend) writePoint(point *influxdb2_write.Point) error {
	if b.IsValid && b.writer != nil {
		b.writer.WritePoint(point)
		return nil
	}
	if b.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := b.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}
