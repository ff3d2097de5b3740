package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"
)

// Entry is one raw dapp token together with the key it was listed under
// (a symbol or address for map-shaped lists, the index for array-shaped lists)
type Entry struct {
	Key   string
	Value any
}

// DappTokens is a dapp token collection in its original iteration order.
// The pointer itself is the collection's identity: a new load is a new identity.
type DappTokens struct {
	entries []Entry
}

// New builds a collection from entries in the given order
func New(entries ...Entry) *DappTokens {
	return &DappTokens{entries: entries}
}

// FromList builds a collection from an array-shaped token list
func FromList(list []any) *DappTokens {
	entries := make([]Entry, len(list))
	for i, v := range list {
		entries[i] = Entry{Key: strconv.Itoa(i), Value: v}
	}
	return &DappTokens{entries: entries}
}

// FromMap builds a collection from a map-shaped token list. Go maps have no
// iteration order, so keys are sorted to keep the result deterministic.
func FromMap(m map[string]any) *DappTokens {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: k, Value: m[k]}
	}
	return &DappTokens{entries: entries}
}

// Len returns the number of raw entries. A nil collection is empty.
func (d *DappTokens) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns the raw entries in input order
func (d *DappTokens) Entries() []Entry {
	if d == nil {
		return nil
	}
	return d.entries
}

// Source supplies raw dapp tokens
type Source interface {
	Tokens(ctx context.Context) (*DappTokens, error)
}

// FileSource reads a token list from a JSON file
type FileSource struct {
	Path string
}

// Tokens loads the file on every call so edits are picked up on refresh
func (s FileSource) Tokens(ctx context.Context) (*DappTokens, error) {
	return Load(s.Path)
}

// URLSource fetches a token list over HTTP
type URLSource struct {
	URL    string
	Client *http.Client
}

// Tokens fetches and decodes the remote token list
func (s URLSource) Tokens(ctx context.Context) (*DappTokens, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token list request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token list returned status code %d", resp.StatusCode)
	}

	return Decode(resp.Body)
}

// Load reads a token list file
func Load(path string) (*DappTokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token list: %w", err)
	}

	tokens, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode token list %s: %w", path, err)
	}
	return tokens, nil
}

// Decode reads a token list in one of three shapes: a JSON array of tokens,
// a JSON object keyed by symbol or address, or a token-list document with a
// "tokens" array. Object key order is preserved.
func Decode(r io.Reader) (*DappTokens, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("expected array or object, got %v", tok)
	}

	switch delim {
	case '[':
		var list []any
		for dec.More() {
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return FromList(list), nil

	case '{':
		var entries []Entry
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: key, Value: v})
		}

		for _, e := range entries {
			if list, ok := e.Value.([]any); ok && e.Key == "tokens" {
				return FromList(list), nil
			}
		}
		return New(entries...), nil

	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}
