// Action table tool - dumps the discrete action table as CSV, or verifies a
// previously dumped table against the current build.
//
// Usage:
//
//	go run ./cmd/actiontable -out actions.csv
//	go run ./cmd/actiontable -verify actions.csv
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/immortal/action"
)

var errMismatch = errors.New("action table mismatch")

// Row is one table entry.
type Row struct {
	Index     int     `csv:"index"`
	Kind      string  `csv:"kind"`
	Throttle  float64 `csv:"throttle"`
	Steer     float64 `csv:"steer"`
	Pitch     float64 `csv:"pitch"`
	Yaw       float64 `csv:"yaw"`
	Roll      float64 `csv:"roll"`
	Jump      float64 `csv:"jump"`
	Boost     float64 `csv:"boost"`
	Handbrake float64 `csv:"handbrake"`
}

func (r Row) vector() action.Vector {
	return action.Vector{r.Throttle, r.Steer, r.Pitch, r.Yaw, r.Roll, r.Jump, r.Boost, r.Handbrake}
}

func rows(t *action.Table) []Row {
	out := make([]Row, t.Size())
	for i, v := range t.Vectors() {
		kind := "ground"
		if i >= t.GroundSize() {
			kind = "aerial"
		}
		out[i] = Row{
			Index:     i,
			Kind:      kind,
			Throttle:  v.Throttle(),
			Steer:     v.Steer(),
			Pitch:     v.Pitch(),
			Yaw:       v.Yaw(),
			Roll:      v.Roll(),
			Jump:      v.Jump(),
			Boost:     v.Boost(),
			Handbrake: v.Handbrake(),
		}
	}
	return out
}

func dump(t *action.Table, w io.Writer) error {
	return gocsv.Marshal(rows(t), w)
}

// verify checks that every recorded index still decodes to the recorded
// vector and that the sizes agree.
func verify(t *action.Table, r io.Reader) error {
	var recorded []Row
	if err := gocsv.Unmarshal(r, &recorded); err != nil {
		return fmt.Errorf("parsing table: %w", err)
	}
	if len(recorded) != t.Size() {
		return fmt.Errorf("%w: %d entries recorded, %d built", errMismatch, len(recorded), t.Size())
	}
	for i, row := range recorded {
		if row.Index != i {
			return fmt.Errorf("%w: row %d has index %d", errMismatch, i, row.Index)
		}
		got, err := t.Decode(row.Index)
		if err != nil {
			return err
		}
		if want := row.vector(); got != want {
			return fmt.Errorf("%w: index %d recorded %v, built %v", errMismatch, i, want, got)
		}
	}
	return nil
}

// writeFile dumps the table to path, including the error from closing it.
func writeFile(t *action.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := dump(t, f); err != nil {
		f.Close()
		return fmt.Errorf("writing table: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

func verifyFile(t *action.Table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening table: %w", err)
	}
	defer f.Close()
	return verify(t, f)
}

func main() {
	outPath := flag.String("out", "", "Write the table to this CSV file (empty = stdout)")
	verifyPath := flag.String("verify", "", "Verify a dumped table instead of writing one")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	table := action.NewTable()

	switch {
	case *verifyPath != "":
		if err := verifyFile(table, *verifyPath); err != nil {
			slog.Error("verification failed", "path", *verifyPath, "error", err)
			os.Exit(1)
		}
		slog.Info("action table verified", "path", *verifyPath, "size", table.Size())
		return
	case *outPath != "":
		if err := writeFile(table, *outPath); err != nil {
			slog.Error("failed to write table", "path", *outPath, "error", err)
			os.Exit(1)
		}
	default:
		if err := dump(table, os.Stdout); err != nil {
			slog.Error("failed to write table", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("action table written", "size", table.Size(), "ground", table.GroundSize())
}
