package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	DefaultStoreFileName = ".twap-adapter-orders.json"
)

// Store is a local order book persisted as JSON, keyed by account and order
// id. It serves as an order Source when no indexer is available.
type Store struct {
	filePath string
	mu       sync.RWMutex
	accounts map[string]map[string]map[string]any
}

// storeFile represents the JSON structure for storage
type storeFile struct {
	Accounts map[string]map[string]map[string]any `json:"accounts"`
}

// NewStore opens the store file, creating an empty store if it doesn't exist
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		// Default to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStoreFileName)
	}

	s := &Store{
		filePath: filePath,
		accounts: make(map[string]map[string]map[string]any),
	}

	if err := s.load(); err != nil {
		// If file doesn't exist, that's okay - it is created on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
	}

	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var f storeFile
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("failed to unmarshal orders: %w", err)
	}

	s.accounts = f.Accounts
	if s.accounts == nil {
		s.accounts = make(map[string]map[string]map[string]any)
	}
	return nil
}

// save writes the store file. Callers hold the write lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(storeFile{Accounts: s.accounts}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal orders: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write orders: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Put adds or replaces records for an account. Every record needs an "id".
func (s *Store) Put(account string, records []any) (int, error) {
	if account == "" {
		return 0, fmt.Errorf("account is required")
	}

	byID := make(map[string]map[string]any, len(records))
	for i, r := range records {
		fields, ok := r.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("record %d is not an object", i)
		}
		id := fmt.Sprint(fields["id"])
		if fields["id"] == nil || id == "" {
			return 0, fmt.Errorf("record %d has no id", i)
		}
		byID[id] = fields
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account)
	book := s.accounts[key]
	if book == nil {
		book = make(map[string]map[string]any)
		s.accounts[key] = book
	}
	for id, fields := range byID {
		book[id] = fields
	}

	return len(records), s.save()
}

// Delete removes one order of an account
func (s *Store) Delete(account, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.accounts[strings.ToLower(account)]
	if _, exists := book[id]; !exists {
		return fmt.Errorf("order '%s' not found", id)
	}
	delete(book, id)

	return s.save()
}

// Orders returns the account's records ordered by id. An empty account returns
// every record.
func (s *Store) Orders(ctx context.Context, account string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var books []map[string]map[string]any
	if account == "" {
		for _, book := range s.accounts {
			books = append(books, book)
		}
	} else if book, ok := s.accounts[strings.ToLower(account)]; ok {
		books = append(books, book)
	}

	var out []any
	for _, book := range books {
		ids := make([]string, 0, len(book))
		for id := range book {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			out = append(out, book[id])
		}
	}
	return out, nil
}

// Count returns the number of stored orders of an account
func (s *Store) Count(account string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.accounts[strings.ToLower(account)])
}

// GetFilePath returns the storage file path
func (s *Store) GetFilePath() string {
	return s.filePath
}
