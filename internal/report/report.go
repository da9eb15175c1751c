// Package report prints the console summary of a finished run.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/tollsim/tollsim/internal/sim"
	"github.com/tollsim/tollsim/pkg/core"
)

// DefaultRows is the number of records shown per table.
const DefaultRows = 5

// Data is everything the summary prints.
type Data struct {
	Name        string
	Zones       int
	RoadKm      float64
	Summary     sim.Summary
	Movements   []core.MovementRecord
	Collections []core.TollCollectionRecord
	// Totals are the per-tick toll totals. When nil they are computed from
	// Collections.
	Totals []TickTotal
	// Rows limits the movement and toll tables. <= 0 means DefaultRows.
	Rows int
}

// TickTotal is the revenue collected at one tick.
type TickTotal struct {
	Time   int
	Count  int
	Amount float64
}

// TotalsByTime sums collections per tick, ascending by time.
func TotalsByTime(collections []core.TollCollectionRecord) []TickTotal {
	byTime := make(map[int]*TickTotal)
	for _, c := range collections {
		t, ok := byTime[c.Time]
		if !ok {
			t = &TickTotal{Time: c.Time}
			byTime[c.Time] = t
		}
		t.Count++
		t.Amount += c.Charge
	}
	out := make([]TickTotal, 0, len(byTime))
	for _, t := range byTime {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Summary writes the run header, the first rows of each record table, the
// per-tick toll totals and the final balances.
func Summary(w io.Writer, d Data) error {
	rows := d.Rows
	if rows <= 0 {
		rows = DefaultRows
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Run: %s (%d vehicles, %d zones, %.3f km of road)\n\n",
		d.Name, len(d.Summary.Balances), d.Zones, d.RoadKm)

	fmt.Fprintln(tw, "Vehicle Movements:")
	fmt.Fprintln(tw, "\tvehicle_id\tlat\tlon\ttime")
	for i, m := range head(d.Movements, rows) {
		fmt.Fprintf(tw, "%d\t%d\t%.6f\t%.6f\t%d\n", i, m.VehicleID, m.Position.Lat, m.Position.Lon, m.Time)
	}
	fmt.Fprintf(tw, "(%d total)\n\n", len(d.Movements))

	fmt.Fprintln(tw, "Toll Collections:")
	if len(d.Collections) == 0 {
		fmt.Fprintln(tw, "(none)")
	} else {
		fmt.Fprintln(tw, "\tvehicle_id\tzone\tcharge\ttime")
		for i, c := range head(d.Collections, rows) {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%.2f\t%d\n", i, c.VehicleID, c.Zone, c.Charge, c.Time)
		}
		fmt.Fprintf(tw, "(%d total)\n", len(d.Collections))
	}
	fmt.Fprintln(tw)

	totals := d.Totals
	if totals == nil {
		totals = TotalsByTime(d.Collections)
	}
	if len(totals) > 0 {
		fmt.Fprintln(tw, "Toll Collections Over Time:")
		fmt.Fprintln(tw, "time\tcount\tcharge")
		for _, t := range totals {
			fmt.Fprintf(tw, "%d\t%d\t%.2f\n", t.Time, t.Count, t.Amount)
		}
		fmt.Fprintln(tw)
	}

	fmt.Fprintln(tw, "Balances:")
	fmt.Fprintln(tw, "vehicle_id\tbalance")
	ids := make([]int, 0, len(d.Summary.Balances))
	for id := range d.Summary.Balances {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(tw, "%d\t%.2f\n", id, d.Summary.Balances[id])
	}
	fmt.Fprintln(tw)

	s := d.Summary
	fmt.Fprintf(tw, "ticks=%d movements=%d collections=%d declined=%d revenue=%.2f arrived=%d\n",
		s.Ticks, s.Movements, s.Collections, s.Declined, s.Revenue, s.Arrived)

	return tw.Flush()
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
