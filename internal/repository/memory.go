package repository

import (
	"context"
	"sync"
	"time"

	"github.com/debemdeboas/site-editor/internal/model"
)

// MemoryRepository keeps content in process memory. Useful for development and tests.
type MemoryRepository struct {
	notifier

	sections sync.Map // model.SectionKey -> model.SectionContent
	mu       sync.Mutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// NewMemoryRepositoryFrom seeds the repository with content.
func NewMemoryRepositoryFrom(seed map[model.SectionKey]model.SectionContent) *MemoryRepository {
	r := NewMemoryRepository()
	for k, v := range seed {
		r.sections.Store(k, v.Clone())
	}
	return r
}

func (r *MemoryRepository) FetchSectionContent(ctx context.Context, section model.SectionKey) (model.SectionContent, error) {
	if v, ok := r.sections.Load(section); ok {
		return v.(model.SectionContent).Clone(), nil
	}
	return model.SectionContent{}, nil
}

func (r *MemoryRepository) WriteField(ctx context.Context, section model.SectionKey, field model.FieldName, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := model.SectionContent{}
	if v, ok := r.sections.Load(section); ok {
		next = v.(model.SectionContent).Clone()
	}
	next[field] = value
	r.sections.Store(section, next)
	return nil
}

// Watch blocks until ctx is done; nothing else writes to process memory.
func (r *MemoryRepository) Watch(ctx context.Context, interval time.Duration) {
	<-ctx.Done()
}
