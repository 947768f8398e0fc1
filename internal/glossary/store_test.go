package glossary

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for missing file: %v", err)
	}

	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d terms", store.Len())
	}
}

func TestLoad_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	content := `{"林凡": "Lin Fan", "青云宗": "Azure Cloud Sect"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	all := store.All()
	if all["林凡"] != "Lin Fan" {
		t.Errorf("Expected 'Lin Fan', got '%s'", all["林凡"])
	}
	if all["青云宗"] != "Azure Cloud Sect" {
		t.Errorf("Expected 'Azure Cloud Sect', got '%s'", all["青云宗"])
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for corrupt glossary file")
	}
}

func TestFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	store, _ := Load(path)
	if _, err := store.Merge([]Term{
		{Original: "林凡", Translation: "Lin Fan"},
		{Original: "青云宗", Translation: "Azure Cloud Sect"},
		{Original: "丹药", Translation: "pill"},
	}); err != nil {
		t.Fatal(err)
	}

	relevant := store.Filter("林凡走进了青云宗的大门。")

	if len(relevant) != 2 {
		t.Errorf("Expected 2 relevant terms, got %d: %v", len(relevant), relevant)
	}
	if relevant["林凡"] != "Lin Fan" {
		t.Error("Expected 林凡 to be relevant")
	}
	if _, ok := relevant["丹药"]; ok {
		t.Error("丹药 does not occur in the text and should be filtered out")
	}
}

func TestMerge_LastWriterWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	store, _ := Load(path)

	if _, err := store.Merge([]Term{
		{Original: "林凡", Translation: "Lin Fan"},
		{Original: "林凡", Translation: "Forest Fan"},
	}); err != nil {
		t.Fatal(err)
	}

	if got := store.All()["林凡"]; got != "Forest Fan" {
		t.Errorf("Expected last occurrence to win, got '%s'", got)
	}
}

func TestMerge_PersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	store, _ := Load(path)

	added, err := store.Merge([]Term{{Original: "灵气", Translation: "spiritual energy"}})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if added != 1 {
		t.Errorf("Expected 1 added term, got %d", added)
	}

	// A fresh load must see the merged term.
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := reloaded.All()["灵气"]; got != "spiritual energy" {
		t.Errorf("Merged term not persisted, got '%s'", got)
	}

	// File must be valid pretty-printed JSON.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("Persisted glossary is not valid JSON: %v", err)
	}
}

func TestMerge_SkipsEmptyKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	store, _ := Load(path)

	added, err := store.Merge([]Term{{Original: "", Translation: "ghost"}})
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 || store.Len() != 0 {
		t.Error("Empty original terms must not be merged")
	}
}

func TestMerge_ConcurrentUnion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	store, _ := Load(path)

	// Two concurrent units each contribute a distinct key; both must survive
	// in the persisted store.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		store.Merge([]Term{{Original: "林凡", Translation: "Lin Fan"}})
	}()
	go func() {
		defer wg.Done()
		store.Merge([]Term{{Original: "青云宗", Translation: "Azure Cloud Sect"}})
	}()
	wg.Wait()

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	all := reloaded.All()
	if all["林凡"] != "Lin Fan" || all["青云宗"] != "Azure Cloud Sect" {
		t.Errorf("Concurrent merge lost an update: %v", all)
	}
}
