package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yourusername/podium/internal/simulation"
)

// competitorRecord is one entry of a JSON competitor file.
type competitorRecord struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Strength float64 `json:"strength"`
}

// readCompetitors loads competitors from a .json or .csv file. CSV rows are
// id,strength[,name] with an optional header.
func readCompetitors(path string) ([]simulation.Competitor, map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open competitors file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeCompetitorsJSON(f)
	case ".csv":
		return decodeCompetitorsCSV(f)
	default:
		return nil, nil, fmt.Errorf("unsupported competitors file %q: use .json or .csv", path)
	}
}

func decodeCompetitorsJSON(r io.Reader) ([]simulation.Competitor, map[string]string, error) {
	var records []competitorRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("failed to decode competitors: %w", err)
	}
	competitors := make([]simulation.Competitor, len(records))
	names := make(map[string]string, len(records))
	for i, rec := range records {
		competitors[i] = simulation.Competitor{ID: rec.ID, Strength: rec.Strength}
		if rec.Name != "" {
			names[rec.ID] = rec.Name
		}
	}
	return competitors, names, nil
}

func decodeCompetitorsCSV(r io.Reader) ([]simulation.Competitor, map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var competitors []simulation.Competitor
	names := make(map[string]string)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return competitors, names, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read competitors: %w", err)
		}
		if len(record) < 2 {
			return nil, nil, fmt.Errorf("competitors line %d: want id,strength[,name]", line)
		}
		strength, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, nil, fmt.Errorf("competitors line %d: invalid strength %q", line, record[1])
		}
		id := strings.TrimSpace(record[0])
		competitors = append(competitors, simulation.Competitor{ID: id, Strength: strength})
		if len(record) > 2 && record[2] != "" {
			names[id] = strings.TrimSpace(record[2])
		}
	}
}

// parseCompetitorFlags parses repeated id=strength flags.
func parseCompetitorFlags(values []string) ([]simulation.Competitor, error) {
	competitors := make([]simulation.Competitor, 0, len(values))
	for _, v := range values {
		id, raw, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid competitor %q: want id=strength", v)
		}
		strength, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid strength in %q: %w", v, err)
		}
		competitors = append(competitors, simulation.Competitor{ID: strings.TrimSpace(id), Strength: strength})
	}
	return competitors, nil
}
