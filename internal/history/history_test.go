package history

import (
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{Path: filepath.Join(t.TempDir(), "history.json")}
}

func TestAppendAndAll(t *testing.T) {
	s := testStore(t)
	if err := s.Append(Entry{CreatedTime: "2026-08-28T10:00:00Z", UserQuestion: "capital of France", URL: "https://en.wikipedia.org/wiki/Paris"}); err != nil {
		t.Fatal(err)
	}
	// Duplicate created time is ignored.
	if err := s.Append(Entry{CreatedTime: "2026-08-28T10:00:00Z", UserQuestion: "other", URL: "x"}); err != nil {
		t.Fatal(err)
	}
	entries, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].UserQuestion != "capital of France" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestAll_MissingFile(t *testing.T) {
	s := testStore(t)
	entries, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty log, got %d", len(entries))
	}
}

func TestDeleteByDatePrefix(t *testing.T) {
	s := testStore(t)
	_ = s.Append(Entry{CreatedTime: "2026-08-27T09:00:00Z", UserQuestion: "a"})
	_ = s.Append(Entry{CreatedTime: "2026-08-28T09:00:00Z", UserQuestion: "b"})
	if err := s.DeleteByDatePrefix("2026-08-27"); err != nil {
		t.Fatal(err)
	}
	entries, _ := s.All()
	if len(entries) != 1 || entries[0].UserQuestion != "b" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestDeleteAll(t *testing.T) {
	s := testStore(t)
	_ = s.Append(Entry{CreatedTime: "2026-08-28T09:00:00Z"})
	if err := s.DeleteAll(); err != nil {
		t.Fatal(err)
	}
	entries, _ := s.All()
	if len(entries) != 0 {
		t.Fatalf("expected empty log after delete, got %d", len(entries))
	}
	// Deleting an already-missing file is fine.
	if err := s.DeleteAll(); err != nil {
		t.Fatal(err)
	}
}
