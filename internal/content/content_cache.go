package content

import (
	"github.com/debemdeboas/site-editor/internal/cache"
	"github.com/debemdeboas/site-editor/internal/model"
)

// sectionEntry is immutable once stored; every transition stores a new entry.
type sectionEntry struct {
	status model.LoadStatus
	fields model.SectionContent

	// Set while loading. Values confirmed during the fetch are kept in fields and
	// win over the fetched ones.
	load *inflight
}

// inflight is shared by every entry stored during one fetch. err is written once,
// before done is closed.
type inflight struct {
	done chan struct{}
	err  error
}

// ContentCache keeps the editable text of every section together with its load status.
//
// A section moves unloaded -> loading -> loaded|failed and never re-enters loading
// while a fetch for it is outstanding.
type ContentCache struct {
	entries *cache.Cache[model.SectionKey, *sectionEntry]
}

func NewContentCache() *ContentCache {
	return &ContentCache{
		entries: cache.NewCache[model.SectionKey, *sectionEntry](),
	}
}

func (c *ContentCache) Status(section model.SectionKey) model.LoadStatus {
	entry, ok := c.entries.Get(section)
	if !ok {
		return model.StatusUnloaded
	}
	return entry.status
}

func (c *ContentCache) Read(section model.SectionKey, field model.FieldName) (string, bool) {
	entry, ok := c.entries.Get(section)
	if !ok {
		return "", false
	}
	val, ok := entry.fields[field]
	return val, ok
}

// Section returns a copy of the cached fields of a section.
func (c *ContentCache) Section(section model.SectionKey) model.SectionContent {
	entry, ok := c.entries.Get(section)
	if !ok {
		return model.SectionContent{}
	}
	return entry.fields.Clone()
}

// begin moves a section into loading unless it is already loading or loaded.
// It returns the entry the caller should observe and whether the caller owns the fetch.
func (c *ContentCache) begin(section model.SectionKey) (*sectionEntry, bool) {
	started := false
	entry, _ := c.entries.Update(section, func(current *sectionEntry, exists bool) (*sectionEntry, bool) {
		if exists && (current.status == model.StatusLoading || current.status == model.StatusLoaded) {
			return current, false
		}
		started = true
		next := &sectionEntry{
			status: model.StatusLoading,
			fields: model.SectionContent{},
			load:   &inflight{done: make(chan struct{})},
		}
		// Values confirmed before the first load ride along until the fetch lands.
		if exists && current.status == model.StatusUnloaded {
			next.fields = current.fields.Clone()
		}
		return next, true
	})
	return entry, started
}

// finish resolves the load started by begin. On failure the section is treated as empty.
func (c *ContentCache) finish(section model.SectionKey, load *inflight, fetched model.SectionContent, err error) {
	c.entries.Update(section, func(current *sectionEntry, exists bool) (*sectionEntry, bool) {
		if !exists || current.load != load {
			return current, false
		}
		if err != nil {
			return &sectionEntry{status: model.StatusFailed, fields: current.fields.Clone()}, true
		}
		fields := fetched.Clone()
		for k, v := range current.fields {
			fields[k] = v
		}
		return &sectionEntry{status: model.StatusLoaded, fields: fields}, true
	})
	load.err = err
	close(load.done)
}

// Set stores a persisted value without changing the section's load status.
func (c *ContentCache) Set(section model.SectionKey, field model.FieldName, value string) {
	c.entries.Update(section, func(current *sectionEntry, exists bool) (*sectionEntry, bool) {
		if !exists {
			return &sectionEntry{
				status: model.StatusUnloaded,
				fields: model.SectionContent{field: value},
			}, true
		}
		next := &sectionEntry{
			status: current.status,
			fields: current.fields.Clone(),
			load:   current.load,
		}
		next.fields[field] = value
		return next, true
	})
}

// Invalidate drops a loaded or failed section so the next load fetches it again.
// A section that is currently loading is left alone.
func (c *ContentCache) Invalidate(section model.SectionKey) bool {
	invalidated := false
	c.entries.Update(section, func(current *sectionEntry, exists bool) (*sectionEntry, bool) {
		if !exists || current.status == model.StatusLoading {
			return current, false
		}
		invalidated = true
		return &sectionEntry{status: model.StatusUnloaded, fields: model.SectionContent{}}, true
	})
	return invalidated
}

func (c *ContentCache) snapshot() (map[model.SectionKey]model.SectionContent, map[model.SectionKey]model.LoadStatus) {
	entries := c.entries.Snapshot()
	sections := make(map[model.SectionKey]model.SectionContent, len(entries))
	statuses := make(map[model.SectionKey]model.LoadStatus, len(entries))
	for key, entry := range entries {
		sections[key] = entry.fields.Clone()
		statuses[key] = entry.status
	}
	return sections, statuses
}
