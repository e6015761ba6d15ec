package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AngelCh415/touchpoints/internal/models"
)

// LoadCustomers reads the local signup dataset. JSON files hold an array of
// customer records; CSV files hold one row per contact.
func LoadCustomers(path string) ([]models.CustomerRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open customers: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(f)
	}
	return ReadJSON(f)
}

func ReadJSON(r io.Reader) ([]models.CustomerRecord, error) {
	var out []models.CustomerRecord
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode customers: %w", err)
	}
	return out, nil
}

var requiredColumns = []string{"company", "email"}

// ReadCSV groups contact rows into customers by tenant_id, falling back to
// the company name. Customers keep the order of their first row.
func ReadCSV(r io.Reader) ([]models.CustomerRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := col[c]; !ok {
			return nil, fmt.Errorf("csv missing column %q", c)
		}
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []models.CustomerRecord
	index := map[string]int{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		key := get(row, "tenant_id")
		if key == "" {
			key = get(row, "company")
		}
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			out = append(out, models.CustomerRecord{
				Company:        get(row, "company"),
				AccountID:      get(row, "tenant_id"),
				LifecycleStage: get(row, "lifecycle_stage"),
				DealStage:      get(row, "deal_stage"),
				DealAmount:     models.FlexString(get(row, "deal_amount")),
				FirstTouch:     get(row, "first_touch"),
				Signup:         get(row, "signup"),
				Channel:        get(row, "source"),
			})
			i = len(out) - 1
			index[key] = i
		}
		if email := get(row, "email"); email != "" {
			out[i].Contacts = append(out[i].Contacts, models.LocalContact{Email: email, Created: get(row, "created")})
		}
	}
	return out, nil
}
