package store

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
)

// exportBucket is where generated report files land.
const exportBucket = "exports"

var exportColumns = map[string][]string{
	"expenses": {"date", "amount", "category", "description"},
	"income":   {"date", "amount", "source", "description"},
}

// exportCSV snapshots one table into a CSV object in the exports bucket and
// returns the object key. Only the single-table exports go through here; report
// formats that need rendering stay with the job worker.
func (s *Supabase) exportCSV(exportType string) (string, error) {
	table := "expenses"
	if exportType == "all_income" {
		table = "income"
	}

	data, _, err := s.client.From(table).
		Select("*", "", false).
		Order("date", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return "", fmt.Errorf("store: fetch %s for export: %w", table, err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return "", fmt.Errorf("store: decode %s for export: %w", table, err)
	}

	key := fmt.Sprintf("%s-%s.csv", exportType, time.Now().Format("20060102-150405"))
	body := buildCSV(exportColumns[table], rows)
	if _, err := s.client.Storage.UploadFile(exportBucket, key, bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("store: upload export %s: %w", key, err)
	}
	return key, nil
}

// buildCSV renders rows against a fixed column order; missing fields stay
// empty rather than failing the export.
func buildCSV(columns []string, rows []map[string]any) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(columns)
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		_ = w.Write(record)
	}
	w.Flush()
	return buf.Bytes()
}
