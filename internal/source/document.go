package source

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AngelCh415/touchpoints/internal/models"
)

// WriteDocument persists the journeys as one indented JSON array. The file
// is written to a temp name and renamed so readers never see a partial
// document.
func WriteDocument(path string, journeys []models.CustomerJourney) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".touchpoints-*.json")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := EncodeDocument(tmp, journeys); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

func EncodeDocument(w io.Writer, journeys []models.CustomerJourney) error {
	if journeys == nil {
		journeys = []models.CustomerJourney{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(journeys); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

func ReadDocument(path string) ([]models.CustomerJourney, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	var out []models.CustomerJourney
	if err := json.NewDecoder(f).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}
