package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// snapshotFileMode is the permission of saved snapshot files.
const snapshotFileMode = 0600

// SaveTo writes a pretty-printed JSON snapshot of every entry to w.
//
// The document is an object keyed by document ID; each value holds the
// content, metadata and embedding of that document.
func (s *MemoryStore) SaveTo(w io.Writer) error {
	snapshot := s.Snapshot()

	doc := make(map[string]Entry, len(snapshot))
	for _, e := range snapshot {
		if e.Metadata == nil {
			e.Metadata = map[string]interface{}{}
		}
		doc[e.ID] = e
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return newIOError("save", "", err)
	}
	return nil
}

// Save atomically writes a snapshot to path.
//
// The snapshot is written to a temporary file in the destination directory
// and renamed over path, so readers never observe a partial file. Any
// failure is returned as an *IOError.
func (s *MemoryStore) Save(ctx context.Context, path string) (err error) {
	_, span := tracer.Start(ctx, "MemoryStore.Save")
	defer span.End()
	defer func() { recordOperation("save", err) }()

	span.SetAttributes(attribute.String("path", path))

	if err := s.save(path); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("failed to save snapshot", zap.String("path", path), zap.Error(err))
		return err
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Info("saved snapshot",
		zap.String("path", path),
		zap.Int("documents", s.Count()),
	)
	return nil
}

func (s *MemoryStore) save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return newIOError("save", path, err)
	}
	tmpPath := tmp.Name()

	if err := s.SaveTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return newIOError("save", path, errorsCause(err))
	}
	if err := tmp.Chmod(snapshotFileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return newIOError("save", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return newIOError("save", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return newIOError("save", path, err)
	}

	s.savedMu.Lock()
	defer s.savedMu.Unlock()
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return newIOError("save", path, err)
	}
	// A failed stat only costs a redundant reload.
	s.saved, _ = os.Stat(path)
	return nil
}

// WroteSnapshot reports whether the file at path is still the one written by
// the store's last Save.
func (s *MemoryStore) WroteSnapshot(path string) bool {
	s.savedMu.Lock()
	saved := s.saved
	s.savedMu.Unlock()
	if saved == nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(saved, info) &&
		info.Size() == saved.Size() &&
		info.ModTime().Equal(saved.ModTime())
}

// LoadFrom replaces the store contents with the JSON snapshot read from r.
//
// Nothing is changed unless the whole snapshot decodes and every embedding
// has the store's dimension. Failures are returned as an *IOError whose
// message includes the text of the underlying error.
func (s *MemoryStore) LoadFrom(r io.Reader) error {
	entries, err := s.decode(r)
	if err != nil {
		return newIOError("load", "", err)
	}
	s.replace(entries)
	return nil
}

// Load replaces the store contents with the snapshot at path.
func (s *MemoryStore) Load(ctx context.Context, path string) (err error) {
	_, span := tracer.Start(ctx, "MemoryStore.Load")
	defer span.End()
	defer func() { recordOperation("load", err) }()

	span.SetAttributes(attribute.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return newIOError("load", path, err)
	}
	defer f.Close()

	entries, err := s.decode(f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("failed to load snapshot", zap.String("path", path), zap.Error(err))
		return newIOError("load", path, err)
	}

	count := s.replace(entries)
	span.SetAttributes(attribute.Int("documents", count))
	span.SetStatus(codes.Ok, "success")

	s.logger.Info("loaded snapshot",
		zap.String("path", path),
		zap.Int("documents", count),
	)
	return nil
}

// decode parses a snapshot and returns its entries ordered by ID.
func (s *MemoryStore) decode(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)
	var doc map[string]Entry
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if doc == nil {
		return nil, errors.New("decoding snapshot: expected an object, got null")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data")
		}
		return nil, fmt.Errorf("decoding snapshot: trailing content after object: %w", err)
	}

	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	dim := s.Dimension()
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		e := doc[id]
		e.ID = id
		if e.Embedding == nil {
			return nil, fmt.Errorf("%w: document %q has no embedding", ErrNullInput, id)
		}
		if len(e.Embedding) != dim {
			return nil, fmt.Errorf("%w: document %q embedding has %d dimensions, want %d",
				ErrDimensionMismatch, id, len(e.Embedding), dim)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// errorsCause unwraps an *IOError produced by SaveTo so Save does not nest them.
func errorsCause(err error) error {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return ioErr.Err
	}
	return err
}
