package inmemory

import (
	"context"
	"testing"

	"github.com/sweetpotato0/ragrouter/faq"
)

func TestLookupEmptyStore(t *testing.T) {
	store := New()
	_, found, err := store.Lookup(context.Background(), []float32{1, 0})
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if found {
		t.Fatal("expected no match in empty store")
	}
}

func TestLookupReturnsBestMatch(t *testing.T) {
	ctx := context.Background()
	store := New()

	entries := []faq.Entry{
		{ID: "faq-1", Question: "opening hours", Answer: "9 to 5", Embedding: []float32{1, 0, 0}},
		{ID: "faq-2", Question: "shipping time", Answer: "3 days", Embedding: []float32{0, 1, 0}},
	}
	for _, entry := range entries {
		if err := store.Add(ctx, entry); err != nil {
			t.Fatalf("Add %s: %v", entry.ID, err)
		}
	}

	match, found, err := store.Lookup(ctx, []float32{0, 0.9, 0.1})
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if match.Entry.ID != "faq-2" {
		t.Errorf("expected faq-2, got %s", match.Entry.ID)
	}
	if match.Score <= 0 {
		t.Errorf("expected positive score, got %f", match.Score)
	}
}

func TestAddValidation(t *testing.T) {
	store := New()
	if err := store.Add(context.Background(), faq.Entry{ID: "", Embedding: []float32{1}}); err == nil {
		t.Error("expected error for empty ID")
	}
	if err := store.Add(context.Background(), faq.Entry{ID: "x"}); err == nil {
		t.Error("expected error for missing embedding")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := New()
	if err := store.Add(ctx, faq.Entry{ID: "faq-1", Embedding: []float32{1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Delete(ctx, "faq-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "faq-1"); err == nil {
		t.Error("expected error deleting missing entry")
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("expected count 0, got %d", n)
	}
}
