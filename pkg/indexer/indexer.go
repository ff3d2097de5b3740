package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Source supplies raw order records for an account
type Source interface {
	Orders(ctx context.Context, account string) ([]any, error)
}

// FileSource reads order records from a JSON file. The file holds either an
// array of records, an object with an "orders" array, or an object mapping
// account addresses to arrays.
type FileSource struct {
	Path string
}

// Orders reloads the file and returns the account's records. An empty account
// returns every record.
func (s FileSource) Orders(ctx context.Context, account string) ([]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode orders %s: %w", s.Path, err)
	}

	switch v := doc.(type) {
	case []any:
		return filterByMaker(v, account), nil
	case map[string]any:
		if list, ok := v["orders"].([]any); ok {
			return filterByMaker(list, account), nil
		}
		if account == "" {
			var all []any
			for _, records := range v {
				if list, ok := records.([]any); ok {
					all = append(all, list...)
				}
			}
			return all, nil
		}
		for key, records := range v {
			if strings.EqualFold(key, account) {
				list, _ := records.([]any)
				return list, nil
			}
		}
		return nil, nil
	}

	return nil, fmt.Errorf("unexpected orders document in %s", s.Path)
}

// filterByMaker keeps records whose "maker" matches account. Records without a
// maker are kept; deciding whether they are usable is the reconciler's job.
func filterByMaker(records []any, account string) []any {
	if account == "" {
		return records
	}
	out := make([]any, 0, len(records))
	for _, r := range records {
		fields, ok := r.(map[string]any)
		if !ok {
			out = append(out, r)
			continue
		}
		maker, ok := fields["maker"].(string)
		if !ok || strings.EqualFold(maker, account) {
			out = append(out, r)
		}
	}
	return out
}
