package ftindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/ids"
)

// WriteTargetKind enumerates the three root kinds an IndexSet can be
// opened against.
type WriteTargetKind string

const (
	TargetBase    WriteTargetKind = "base"
	TargetOverlay WriteTargetKind = "overlay"
	TargetStaging WriteTargetKind = "staging"
)

// RequiredFields lists the fields every document of each kind carries.
// Open does not compare an existing index's mapping against this list.
var RequiredFields = map[Kind][]string{
	KindSymbols:  {"file_key", "ref", "project_id", "path", "symbol_stable_id", "kind", "name", "content"},
	KindSnippets: {"file_key", "ref", "project_id", "path", "chunk_type", "content"},
	KindFiles:    {"file_key", "ref", "project_id", "path", "content"},
}

// IndexSet owns the three per-kind Bleve indices for one write target.
type IndexSet struct {
	mu     sync.RWMutex
	root   string
	target WriteTargetKind
	byKind map[Kind]bleve.Index
	closed bool
}

// RootFor computes the on-disk root for a write target given the
// project's data directory, following the fixed layout
// <data>/<project_id>/{base,overlay/<norm_ref>,staging/<sync_id>}.
func RootFor(dataDir string, target WriteTargetKind, refOrSyncID string) string {
	switch target {
	case TargetOverlay:
		return filepath.Join(dataDir, "overlay", ids.NormalizeRef(refOrSyncID))
	case TargetStaging:
		return filepath.Join(dataDir, "staging", refOrSyncID)
	default:
		return filepath.Join(dataDir, "base")
	}
}

// Open opens (creating if absent) the three per-kind indices under root.
// An existing index whose index_meta.json is missing, empty or
// unparseable, or that Bleve cannot open, is reported as an
// index_incompatible error rather than silently degraded; only a forced
// rebuild may delete and recreate it. The stored mapping is not checked
// for RequiredFields, so an index that opens with a different field set
// is accepted.
func Open(root string, target WriteTargetKind) (*IndexSet, error) {
	set := &IndexSet{root: root, target: target, byKind: make(map[Kind]bleve.Index, len(AllKinds))}
	for _, kind := range AllKinds {
		idx, err := openOne(filepath.Join(root, string(kind)), kind)
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.byKind[kind] = idx
	}
	return set, nil
}

func openOne(path string, kind Kind) (bleve.Index, error) {
	m, err := buildMapping(kind)
	if err != nil {
		return nil, cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("build mapping for %s: %v", kind, err), err)
	}

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("create index dir %s: %v", path, err), err)
		}
		return bleve.New(path, m)
	}

	if err := validateOnDiskSchema(path, kind); err != nil {
		return nil, err
	}

	idx, err := bleve.Open(path)
	if err == nil {
		return idx, nil
	}
	if isCorruptionError(err) {
		return nil, cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("index at %s is corrupt: %v", path, err), err)
	}
	return nil, cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("open index at %s: %v", path, err), err)
}

// validateOnDiskSchema rejects an index directory that exists but is
// missing index_meta.json or carries unparseable metadata, the two
// symptoms of a rebuild interrupted mid-write.
func validateOnDiskSchema(path string, kind Kind) error {
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("%s index at %s missing index_meta.json", kind, path), nil)
	}
	if err != nil {
		return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("stat index_meta.json for %s: %v", kind, err), err)
	}
	if info.Size() == 0 {
		return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("%s index_meta.json at %s is empty", kind, path), nil)
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("read index_meta.json for %s: %v", kind, err), err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("%s index_meta.json at %s is corrupt: %v", kind, path, err), err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// DeleteRoot removes an index root entirely — used by the forced-rebuild
// path when Open reports index_incompatible.
func DeleteRoot(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return cerrors.New(cerrors.IndexIncompatible, fmt.Sprintf("remove index root %s: %v", root, err), err)
	}
	return nil
}

// Index returns the underlying Bleve handle for one kind, for callers
// that need direct access (e.g. BatchWriter, Search).
func (s *IndexSet) Index(kind Kind) bleve.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKind[kind]
}

// Close closes all three underlying indices.
func (s *IndexSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	for _, idx := range s.byKind {
		if idx == nil {
			continue
		}
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
