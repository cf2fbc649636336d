// Package telemetry implements the structured, thread-safe telemetry
// sink: one CSV row per (tick, module, job) action event.
package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Row is one telemetry action event, in the column order the spec's
// schema requires.
type Row struct {
	Minute            int
	Module            string
	TaskID            string
	PhaseIndex        int
	Active            bool
	Calibrating       bool
	CooldownRemaining int
	Elapsed           int
	Required          int
	EnergyUsed        int
	BatteryLevelWh    int
	PowerAvailableW   int
	Interrupted       bool
	Defective         bool
	Orbit             string
	Action            string
	Reward            float64
}

var header = []string{
	"minute", "module", "task_id", "phase_index", "active", "calibrating",
	"cooldown_remaining", "elapsed", "required", "energy_used",
	"battery_level_wh", "power_available_w", "interrupted", "defective",
	"orbit", "action", "reward",
}

// Writer is a serialized, append-only CSV sink. All writes go through
// a single mutex; the zero value is not usable, construct with Open.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	csv    *csv.Writer
	rows   int
	fatal  bool
	onFail func(error)
	onRow  func(Row)
}

// OnRow registers a callback invoked with every successfully written
// row, after the row is flushed to disk. Used to feed the optional
// livefeed websocket hub without coupling the CSV sink to it.
func (w *Writer) OnRow(fn func(Row)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRow = fn
}

// Open creates path (truncating any existing file), writes the header
// row, and returns a ready Writer. If fatal is true, write errors are
// returned to the caller; otherwise they are reported via onFail (may
// be nil) and WriteRow returns nil. In both modes every later row is
// still attempted; a failed sink is not switched off.
func Open(path string, fatal bool, onFail func(error)) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create %s: %w", path, err)
	}

	w := &Writer{
		file:   f,
		csv:    csv.NewWriter(f),
		fatal:  fatal,
		onFail: onFail,
	}

	if err := w.csv.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("telemetry: write header: %w", err)
	}
	w.csv.Flush()

	return w, nil
}

// WriteRow appends one telemetry row. Safe for concurrent use by
// multiple module workers.
func (w *Writer) WriteRow(r Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := []string{
		strconv.Itoa(r.Minute),
		r.Module,
		r.TaskID,
		strconv.Itoa(r.PhaseIndex),
		strconv.FormatBool(r.Active),
		strconv.FormatBool(r.Calibrating),
		strconv.Itoa(r.CooldownRemaining),
		strconv.Itoa(r.Elapsed),
		strconv.Itoa(r.Required),
		strconv.Itoa(r.EnergyUsed),
		strconv.Itoa(r.BatteryLevelWh),
		strconv.Itoa(r.PowerAvailableW),
		strconv.FormatBool(r.Interrupted),
		strconv.FormatBool(r.Defective),
		r.Orbit,
		r.Action,
		strconv.FormatFloat(r.Reward, 'f', 1, 64),
	}

	if err := w.csv.Write(record); err != nil {
		return w.handleFailure(err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return w.handleFailure(err)
	}

	w.rows++
	if w.onRow != nil {
		w.onRow(r)
	}
	return nil
}

func (w *Writer) handleFailure(err error) error {
	if w.onFail != nil {
		w.onFail(err)
	}
	if w.fatal {
		return fmt.Errorf("telemetry: sink failure: %w", err)
	}
	return nil
}

// RowCount returns the number of rows written so far.
func (w *Writer) RowCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Close flushes and closes the underlying file. Mandatory on
// shutdown.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	return w.file.Close()
}
