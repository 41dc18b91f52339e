package store

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/inventoryd/internal/inventory"
)

// The wire schema is a JSON array of single-key objects, each key a YYYY-MM-DD
// date mapped to an array of 0 / 1 / null answers:
//
//	[{"2024-01-15":[0,1,null,...]}]
//
// Kept verbatim from the browser app so existing exports import unchanged.

// decodeHistory parses and validates a history blob. Duplicate dates resolve
// last-one-wins, mirroring how the original looked up the first match but only
// ever appended fresh entries at the end.
func decodeHistory(data []byte) (map[string]inventory.DayRecord, []string, error) {
	var entries []map[string]inventory.DayRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("history must be a JSON array of date objects: %w", err)
	}

	records := make(map[string]inventory.DayRecord, len(entries))
	order := make([]string, 0, len(entries))
	for i, entry := range entries {
		if len(entry) != 1 {
			return nil, nil, fmt.Errorf("entry %d must hold exactly one date, has %d", i, len(entry))
		}
		for date, rec := range entry {
			if _, err := inventory.ParseDateKey(date); err != nil {
				return nil, nil, fmt.Errorf("entry %d: %w", i, err)
			}
			if _, dup := records[date]; !dup {
				order = append(order, date)
			}
			records[date] = rec.Normalized()
		}
	}
	return records, order, nil
}

// encodeHistory serializes records in persisted order. Pretty-printed, matching
// what the original wrote into its export file.
func encodeHistory(records map[string]inventory.DayRecord, order []string) ([]byte, error) {
	entries := make([]map[string]inventory.DayRecord, 0, len(order))
	for _, date := range order {
		rec, ok := records[date]
		if !ok {
			continue
		}
		entries = append(entries, map[string]inventory.DayRecord{date: rec})
	}
	return json.MarshalIndent(entries, "", "  ")
}
