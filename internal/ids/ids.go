// Package ids derives the deterministic and content-addressed identifiers
// used across the engine: project IDs, symbol stable IDs, result IDs, and
// content hashes.
package ids

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// ContentHash returns the BLAKE3 digest of file bytes, hex-encoded.
// It drives the incremental-skip decision in the indexing pipeline.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ProjectID derives a deterministic 64-bit function of the canonical
// repository root path, rendered as a fixed-width hex string.
func ProjectID(canonicalRootPath string) string {
	sum := blake3.Sum256([]byte(canonicalRootPath))
	n := binary.BigEndian.Uint64(sum[:8])
	return fmt.Sprintf("%016x", n)
}

// SymbolStableID is content-addressed from the tuple that survives rename
// and re-indexing: qualified name, kind, path, and a signature-body hash.
func SymbolStableID(qualifiedName, kind, path, signatureBodyHash string) string {
	h := blake3.New(32, nil)
	_, _ = h.Write([]byte(qualifiedName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(signatureBodyHash))
	return hex.EncodeToString(h.Sum(nil))
}

// FileKey is the full-text index's single deletion token: repo|ref|path.
func FileKey(repo, ref, path string) string {
	return strings.Join([]string{repo, ref, path}, "|")
}

// ResultIDFields carries the versioned tuple from which a result_id is
// derived; every field participates in the hash so identical state
// across runs yields identical IDs (spec §8.1 invariant 1).
type ResultIDFields struct {
	ResultType     string
	Repo           string
	Ref            string
	Path           string
	LineStart      int
	LineEnd        int
	Kind           string
	Name           string
	QualifiedName  string
	Language       string
	SymbolStableID string
}

// ResultID computes the BLAKE3 of the versioned tuple.
func ResultID(f ResultIDFields) string {
	h := blake3.New(32, nil)
	parts := []string{
		f.ResultType, f.Repo, f.Ref, f.Path,
		fmt.Sprintf("%d", f.LineStart), fmt.Sprintf("%d", f.LineEnd),
		f.Kind, f.Name, f.QualifiedName, f.Language, f.SymbolStableID,
	}
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeRef maps any character not in [A-Za-z0-9._-] to '-' and trims
// leading/trailing '-', matching the data-directory layout contract.
func NormalizeRef(ref string) string {
	var b strings.Builder
	for _, r := range ref {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// FilePseudoSymbolID builds the file-pseudo ID used as the `from` side of
// an import edge that originates at file scope rather than a real symbol.
func FilePseudoSymbolID(path string) string {
	return "file::" + path
}

// IsFilePseudoSymbolID reports whether id was produced by FilePseudoSymbolID
// and, if so, returns the embedded path.
func IsFilePseudoSymbolID(id string) (path string, ok bool) {
	const prefix = "file::"
	if !strings.HasPrefix(id, prefix) {
		return "", false
	}
	return strings.TrimPrefix(id, prefix), true
}
