package storage

import (
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestFileStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewFileStore(filepath.Join(tempDir, "kv"))
	if err != nil {
		t.Fatalf("Failed to create FileStore: %v", err)
	}

	key := "planner/meals"
	value := sample{Name: "week", Items: []string{"Pâtes", "Tomates"}}

	t.Run("Get-Missing", func(t *testing.T) {
		var got sample
		found, err := store.Get(key, &got)
		if err != nil {
			t.Fatalf("Expected no error for a missing key, got %v", err)
		}
		if found {
			t.Error("Expected missing key to report not found")
		}
	})

	t.Run("Put", func(t *testing.T) {
		if err := store.Put(key, value); err != nil {
			t.Fatalf("Failed to put value: %v", err)
		}
		filePath := filepath.Join(tempDir, "kv", "planner_meals.json")
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			t.Errorf("Expected file '%s' to be created, but it wasn't", filePath)
		}
		matches, _ := filepath.Glob(filepath.Join(tempDir, "kv", "*.tmp"))
		if len(matches) != 0 {
			t.Errorf("Expected no leftover temp files, got %v", matches)
		}
	})

	t.Run("Get", func(t *testing.T) {
		var got sample
		found, err := store.Get(key, &got)
		if err != nil || !found {
			t.Fatalf("Expected value to be found, got found=%v err=%v", found, err)
		}
		if got.Name != "week" || len(got.Items) != 2 || got.Items[0] != "Pâtes" {
			t.Errorf("Expected %+v, got %+v", value, got)
		}
	})

	t.Run("Get-Corrupted", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(tempDir, "kv", "broken.json"), []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		var got sample
		if _, err := store.Get("broken", &got); err == nil {
			t.Fatal("Expected an error for corrupted content, got nil")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(key); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		var got sample
		if found, err := store.Get(key, &got); err != nil || found {
			t.Errorf("Expected key to be gone after delete, got found=%v err=%v", found, err)
		}
		if err := store.Delete(key); err != nil {
			t.Errorf("Expected deleting a missing key to succeed, got %v", err)
		}
	})
}
