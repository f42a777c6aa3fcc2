package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mr1hm/quake-etl/internal/models"
)

// SaveSnapshot writes the raw events as an indented JSON array. The file is
// written to a temp path first and renamed so a crash never leaves a
// truncated snapshot behind.
func SaveSnapshot(path string, events []models.RawEvent) error {
	if events == nil {
		events = []models.RawEvent{}
	}

	raw, err := json.MarshalIndent(events, "", "    ")
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating snapshot dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error replacing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot. Numbers are kept as
// json.Number so epoch milliseconds survive the round trip exactly.
func LoadSnapshot(path string) ([]models.RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening snapshot: %w", err)
	}
	defer f.Close()

	var events []models.RawEvent
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&events); err != nil {
		return nil, fmt.Errorf("error decoding snapshot %s: %w", path, err)
	}
	return events, nil
}
