package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/debemdeboas/site-editor/internal/model"
	"github.com/debemdeboas/site-editor/internal/util"
)

const sectionFileExt = ".toml"

// FSRepository keeps one TOML file per section in a directory, fields as top-level keys.
type FSRepository struct { // implements ContentRepository
	notifier

	contentPath string

	mu     sync.Mutex
	hashes map[model.SectionKey]string
}

func NewFSRepository(contentPath string) *FSRepository {
	return &FSRepository{
		contentPath: contentPath,
		hashes:      make(map[model.SectionKey]string),
	}
}

func (r *FSRepository) sectionPath(section model.SectionKey) string {
	return filepath.Join(r.contentPath, string(section)+sectionFileExt)
}

func (r *FSRepository) FetchSectionContent(ctx context.Context, section model.SectionKey) (model.SectionContent, error) {
	data, err := os.ReadFile(r.sectionPath(section))
	if errors.Is(err, fs.ErrNotExist) {
		return model.SectionContent{}, nil
	}
	if err != nil {
		return nil, wrapErr("reading", section, err)
	}
	fields, err := DecodeSectionTOML(data)
	if err != nil {
		return nil, wrapErr("decoding", section, err)
	}
	return fields, nil
}

func (r *FSRepository) WriteField(ctx context.Context, section model.SectionKey, field model.FieldName, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fields, err := r.FetchSectionContent(ctx, section)
	if err != nil {
		return err
	}
	fields[field] = value

	data, err := EncodeSectionTOML(fields)
	if err != nil {
		return wrapErr("encoding", section, err)
	}

	if err := os.MkdirAll(r.contentPath, 0o755); err != nil {
		return fmt.Errorf("error creating content dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.contentPath, "."+string(section)+"-*")
	if err != nil {
		return wrapErr("writing", section, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return wrapErr("writing", section, err)
	}
	if err := tmp.Close(); err != nil {
		return wrapErr("writing", section, err)
	}
	if err := os.Rename(tmp.Name(), r.sectionPath(section)); err != nil {
		return wrapErr("writing", section, err)
	}

	r.hashes[section] = util.ContentHash(data)
	return nil
}

// scan hashes every section file in the directory.
func (r *FSRepository) scan() (map[model.SectionKey]string, error) {
	entries, err := os.ReadDir(r.contentPath)
	if errors.Is(err, fs.ErrNotExist) {
		return map[model.SectionKey]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	hashes := make(map[model.SectionKey]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sectionFileExt) {
			continue
		}
		key, ok := sectionKeyFromName(strings.TrimSuffix(entry.Name(), sectionFileExt))
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.contentPath, entry.Name()))
		if err != nil {
			return nil, err
		}
		hashes[key] = util.ContentHash(data)
	}
	return hashes, nil
}

const watchDebounce = 200 * time.Millisecond

// Watch reports section files changed by hand. It follows directory events and falls
// back to polling every interval when the directory cannot be watched.
func (r *FSRepository) Watch(ctx context.Context, interval time.Duration) {
	if hashes, err := r.scan(); err == nil {
		r.mu.Lock()
		r.hashes = hashes
		r.mu.Unlock()
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(r.contentPath)
	}
	if err != nil {
		if watcher != nil {
			watcher.Close()
		}
		repoLogger.Warn().Err(err).Str("path", r.contentPath).Msg("Cannot watch content directory, polling instead")
		poll(ctx, interval, func(context.Context) { r.checkForChanges() })
		return
	}
	defer watcher.Close()

	// Editors save with write+chmod or temp+rename bursts; one scan per burst.
	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, sectionFileExt) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				debounce.Reset(watchDebounce)
			}
		case <-debounce.C:
			r.checkForChanges()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			repoLogger.Error().Err(err).Msg("Content directory watcher error")
		}
	}
}

func (r *FSRepository) checkForChanges() {
	hashes, err := r.scan()
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error scanning content directory")
		return
	}

	r.mu.Lock()
	var changed []model.SectionKey
	for key, hash := range hashes {
		if r.hashes[key] != hash {
			changed = append(changed, key)
		}
	}
	for key := range r.hashes {
		if _, ok := hashes[key]; !ok {
			changed = append(changed, key)
		}
	}
	r.hashes = hashes
	r.mu.Unlock()

	for _, section := range changed {
		repoLogger.Info().Str("section", string(section)).Msg("Section file changed, reloading")
		r.notifySectionReload(section)
	}
}

// DecodeSectionTOML reads a flat table of field = "text" pairs.
func DecodeSectionTOML(data []byte) (model.SectionContent, error) {
	raw := make(map[string]string)
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, err
	}
	fields := make(model.SectionContent, len(raw))
	for k, v := range raw {
		fields[model.FieldName(k)] = v
	}
	return fields, nil
}

func EncodeSectionTOML(fields model.SectionContent) ([]byte, error) {
	raw := make(map[string]string, len(fields))
	for k, v := range fields {
		raw[string(k)] = v
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeContentTOML reads a whole-site content file with one table per section.
// Invalid section keys or field names are rejected.
func DecodeContentTOML(data []byte) (map[model.SectionKey]model.SectionContent, error) {
	raw := make(map[string]map[string]string)
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, err
	}

	out := make(map[model.SectionKey]model.SectionContent, len(raw))
	for s, fields := range raw {
		key, err := model.ParseSectionKey(s)
		if err != nil {
			return nil, err
		}
		content := make(model.SectionContent, len(fields))
		for f, v := range fields {
			name, err := model.ParseFieldName(f)
			if err != nil {
				return nil, fmt.Errorf("section %q: %w", s, err)
			}
			content[name] = v
		}
		out[key] = content
	}
	return out, nil
}
