// Package source loads production records and registry wells from files or
// request bodies into in-memory values.
package source

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matthewbaird/reactivation/internal/production"
)

// ErrUnknownFormat is returned for file extensions that are not .json or .csv.
var ErrUnknownFormat = errors.New("source: unknown file format")

// LoadRecordsFile reads production records from a .json or .csv file.
func LoadRecordsFile(path string) ([]production.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseRecordsJSON(f)
	case ".csv":
		return ParseRecordsCSV(f)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// ParseRecordsJSON accepts either an array of objects or a provider envelope
// of the form {"data": [...]}. Numbers are kept as json.Number.
func ParseRecordsJSON(r io.Reader) ([]production.Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	if raw[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decoding record envelope: %w", err)
		}
		if len(env.Data) == 0 {
			return nil, nil
		}
		raw = env.Data
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []production.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}

// ParseRecordsCSV maps each row onto the header row. Values stay strings;
// the normalizer coerces them. Empty cells are omitted and malformed rows
// are skipped.
func ParseRecordsCSV(r io.Reader) ([]production.Record, error) {
	rows, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	records := make([]production.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(production.Record, len(header))
		for i, val := range row {
			if i >= len(header) {
				break
			}
			if val = strings.TrimSpace(val); val != "" {
				rec[header[i]] = val
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func readCSV(r io.Reader) (rows [][]string, header []string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err = reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}
