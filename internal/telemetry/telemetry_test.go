package telemetry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, true, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected just the header row, got %d rows", len(rows))
	}
	if len(rows[0]) != len(header) {
		t.Fatalf("header has %d columns, want %d", len(rows[0]), len(header))
	}
}

func TestWriteRowAppendsAndCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	row := Row{Minute: 1, Module: "deposition", TaskID: "wafer-1", Active: true, Action: "consumed"}
	if err := w.WriteRow(row); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if got := w.RowCount(); got != 1 {
		t.Fatalf("RowCount() = %d, want 1", got)
	}

	f, _ := os.Open(path)
	defer f.Close()
	rows, _ := csv.NewReader(f).ReadAll()
	if len(rows) != 2 {
		t.Fatalf("got %d rows (header+data), want 2", len(rows))
	}
	if rows[1][1] != "deposition" || rows[1][2] != "wafer-1" {
		t.Errorf("data row = %v, want module=deposition task_id=wafer-1", rows[1])
	}
}

func TestOnRowCallbackFiresAfterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var got Row
	fired := false
	w.OnRow(func(r Row) {
		fired = true
		got = r
	})

	if err := w.WriteRow(Row{TaskID: "wafer-2"}); err != nil {
		t.Fatal(err)
	}
	if !fired {
		t.Fatal("OnRow callback did not fire")
	}
	if got.TaskID != "wafer-2" {
		t.Errorf("callback row TaskID = %q, want wafer-2", got.TaskID)
	}
}

func TestNonFatalSinkFailureIsSwallowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Close() // close the underlying file out from under the writer

	if err := w.WriteRow(Row{TaskID: "x"}); err != nil {
		t.Errorf("non-fatal WriteRow after close returned error: %v, want nil", err)
	}
}

func TestFatalSinkFailureReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	if err := w.WriteRow(Row{TaskID: "x"}); err == nil {
		t.Error("fatal WriteRow after close returned nil, want error")
	}
}

func TestOnFailCallbackInvokedOnNonFatalFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	var reported error
	w, err := Open(path, false, func(err error) { reported = err })
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	_ = w.WriteRow(Row{TaskID: "x"})
	if reported == nil {
		t.Error("onFail callback was never invoked")
	}
}
