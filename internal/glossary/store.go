package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Term is a single glossary entry as returned by the translation provider.
type Term struct {
	Original    string `json:"original_term"`
	Translation string `json:"english_translation"`
}

// Store holds the term mapping for one book. The backing file is the source
// of truth: every merge is persisted before it is considered applied.
type Store struct {
	mu    sync.Mutex
	path  string
	terms map[string]string
}

// Load reads the glossary file at path, or starts an empty store if the file
// does not exist yet.
func Load(path string) (*Store, error) {
	s := &Store{
		path:  path,
		terms: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary: %w", err)
	}

	if err := json.Unmarshal(data, &s.terms); err != nil {
		return nil, fmt.Errorf("failed to parse glossary %s: %w", path, err)
	}

	return s, nil
}

// Filter returns the subset of terms whose original form literally occurs in
// text. This keeps prompt size bounded as the glossary grows over a long
// book.
func (s *Store) Filter(text string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	relevant := make(map[string]string)
	for term, translation := range s.terms {
		if strings.Contains(text, term) {
			relevant[term] = translation
		}
	}
	return relevant
}

// Merge applies new terms (last occurrence wins per key) and persists the
// store. The whole read-merge-write section runs under the store lock so
// concurrent chapter units cannot lose each other's updates.
func (s *Store) Merge(terms []Term) (int, error) {
	if len(terms) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, t := range terms {
		if t.Original == "" {
			continue
		}
		if _, exists := s.terms[t.Original]; !exists {
			added++
		}
		s.terms[t.Original] = t.Translation
	}

	if err := s.save(); err != nil {
		return added, err
	}
	return added, nil
}

// Len returns the number of stored terms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.terms)
}

// All returns a copy of the full mapping.
func (s *Store) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]string, len(s.terms))
	for k, v := range s.terms {
		result[k] = v
	}
	return result
}

// save writes the mapping as pretty-printed UTF-8 JSON. Callers must hold
// the store lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.terms, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode glossary: %w", err)
	}

	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write glossary: %w", err)
	}
	return nil
}
