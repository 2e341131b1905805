package repository

import (
	"context"
	"testing"

	"github.com/debemdeboas/site-editor/internal/model"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepositoryFrom(map[model.SectionKey]model.SectionContent{
		"hero": {"title": "Welcome"},
	})

	t.Run("Fetch seeded section", func(t *testing.T) {
		fields, err := repo.FetchSectionContent(ctx, "hero")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if fields["title"] != "Welcome" {
			t.Errorf("Expected Welcome, got %q", fields["title"])
		}
	})

	t.Run("Fetch unknown section is empty", func(t *testing.T) {
		fields, err := repo.FetchSectionContent(ctx, "contact")
		if err != nil || len(fields) != 0 {
			t.Errorf("Expected empty section, got %v (err=%v)", fields, err)
		}
	})

	t.Run("Write then fetch", func(t *testing.T) {
		if err := repo.WriteField(ctx, "hero", "subtitle", "Hi"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		fields, _ := repo.FetchSectionContent(ctx, "hero")
		if fields["subtitle"] != "Hi" || fields["title"] != "Welcome" {
			t.Errorf("Unexpected fields: %v", fields)
		}
	})

	t.Run("Fetched map is a copy", func(t *testing.T) {
		fields, _ := repo.FetchSectionContent(ctx, "hero")
		fields["title"] = "mutated"
		again, _ := repo.FetchSectionContent(ctx, "hero")
		if again["title"] != "Welcome" {
			t.Errorf("Expected stored value untouched, got %q", again["title"])
		}
	})

	t.Run("Watch returns when context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		repo.Watch(ctx, 0)
	})
}
