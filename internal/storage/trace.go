package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// TraceRow is one sampled line of a session trace.
type TraceRow struct {
	Time    float64
	Objects int
	Strokes int
	Hits    uint64
	Drops   uint64
}

var traceHeader = []string{"time", "objects", "strokes", "hits", "drops"}

// Trace appends rows to a CSV file.
type Trace struct {
	file *os.File
	w    *csv.Writer
}

// CreateTrace creates path and writes the header.
func CreateTrace(path string) (*Trace, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(traceHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &Trace{file: f, w: w}, nil
}

func (t *Trace) Write(r TraceRow) error {
	return t.w.Write([]string{
		strconv.FormatFloat(r.Time, 'f', 6, 64),
		strconv.Itoa(r.Objects),
		strconv.Itoa(r.Strokes),
		strconv.FormatUint(r.Hits, 10),
		strconv.FormatUint(r.Drops, 10),
	})
}

func (t *Trace) Close() error {
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		t.file.Close()
		return err
	}
	return t.file.Close()
}

// LoadTrace reads a trace written by Trace.
func LoadTrace(path string) ([]TraceRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []TraceRow{}, nil
	}

	rows := make([]TraceRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(traceHeader) {
			return nil, fmt.Errorf("trace line %d: %d fields", i+2, len(rec))
		}
		var r TraceRow
		if r.Time, err = strconv.ParseFloat(rec[0], 64); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", i+2, err)
		}
		if r.Objects, err = strconv.Atoi(rec[1]); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", i+2, err)
		}
		if r.Strokes, err = strconv.Atoi(rec[2]); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", i+2, err)
		}
		if r.Hits, err = strconv.ParseUint(rec[3], 10, 64); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", i+2, err)
		}
		if r.Drops, err = strconv.ParseUint(rec[4], 10, 64); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", i+2, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}
