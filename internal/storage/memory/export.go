package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tollsim/tollsim/internal/geo"
)

// RunExport is the root JSON document consumed by the plotter.
type RunExport struct {
	Name      string             `json:"name"`
	StartedAt time.Time          `json:"startedAt"`
	Horizon   int                `json:"horizon"`
	EndTime   int                `json:"endTime"`
	Params    map[string]any     `json:"params,omitempty"`
	Vehicles  []VehicleJSON      `json:"vehicles"`
	Tolls     [][]any            `json:"tolls"`
	Balances  map[string]float64 `json:"balances"`
}

// VehicleJSON is one vehicle track.
// Each position is [time, lat, lon, mercatorX, mercatorY].
type VehicleJSON struct {
	ID        int     `json:"id"`
	Positions [][]any `json:"positions"`
}

func exportFileName(name string, started time.Time, compress bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '/', '\\':
			return '_'
		}
		return r
	}, name)
	if clean == "" {
		clean = "run"
	}
	ext := ".json"
	if compress {
		ext = ".json.gz"
	}
	return fmt.Sprintf("%s_%s%s", clean, started.Format("20060102_150405"), ext)
}

// exportJSON writes the run to OutputDir. Caller holds b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(b.run.Name, b.run.StartedAt, b.cfg.CompressOutput))

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		Name:      b.run.Name,
		StartedAt: b.run.StartedAt,
		Horizon:   b.run.Horizon,
		Params:    b.run.Params,
		Vehicles:  make([]VehicleJSON, 0, len(b.tracks)),
		Tolls:     make([][]any, 0, len(b.collections)),
		Balances:  make(map[string]float64),
	}
	if b.result != nil {
		export.EndTime = b.result.EndTime
		for id, bal := range b.result.Balances {
			export.Balances[strconv.Itoa(id)] = bal
		}
	}

	ids := make([]int, 0, len(b.tracks))
	for id := range b.tracks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		v := VehicleJSON{ID: id, Positions: make([][]any, 0, len(b.tracks[id]))}
		for _, j := range b.tracks[id] {
			m := b.movements[j]
			x, y := geo.WebMercator(m.Position)
			v.Positions = append(v.Positions, []any{m.Time, m.Position.Lat, m.Position.Lon, x, y})
		}
		export.Vehicles = append(export.Vehicles, v)
	}

	// Format: [time, vehicleId, zone, charge]
	for _, c := range b.collections {
		export.Tolls = append(export.Tolls, []any{c.Time, c.VehicleID, c.Zone, c.Charge})
	}

	return export
}

func writeExport(path string, data RunExport, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("failed to finish gzip stream: %w", cerr)
			}
		}()
		w = gz
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
