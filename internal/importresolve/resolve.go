// Package importresolve turns the raw import statements extract.Extract
// produces into resolved relstore.ImportEdge rows, using the three-tier
// fallback the indexing pipeline documents: exact qualified-name match,
// then short-name match, then a language-specific path-resolved
// candidate looked up in the file manifest. An import nothing resolves
// is kept with a nil target symbol so find_references and later
// indexing passes can still reason about it.
package importresolve

import (
	"context"
	"database/sql"
	"path"
	"strings"

	"github.com/signalridge/cruxe/internal/extract"
	"github.com/signalridge/cruxe/internal/relstore"
)

// ReplaceForFile resolves raws against the current (project, ref)
// symbol table and atomically replaces filePath's import edges with the
// result. This is the deferred step the indexing pipeline runs after
// every file in a run has been scanned, so forward references resolve
// regardless of scan order.
func ReplaceForFile(ctx context.Context, tx *sql.Tx, projectID, ref, filePath, lang string, raws []extract.RawImport) error {
	edges, err := Resolve(ctx, tx, projectID, ref, filePath, lang, raws)
	if err != nil {
		return err
	}
	return relstore.ReplaceImportEdgesForFile(ctx, tx, projectID, ref, "file::"+filePath, edges)
}

// Resolve computes the deduplicated set of import edges for one file's
// raw imports. fromSymbolID is the pseudo-id ("file::<path>") or real
// symbol_stable_id the edges originate from — for top-level imports
// this is almost always the raw import's own SourceQualifiedName.
func Resolve(ctx context.Context, db relstore.DBTX, projectID, ref, importingPath, lang string, raws []extract.RawImport) ([]*relstore.ImportEdge, error) {
	edges := make([]*relstore.ImportEdge, 0, len(raws))
	seen := make(map[string]struct{})

	for _, raw := range raws {
		edge, err := resolveOne(ctx, db, projectID, ref, importingPath, lang, raw)
		if err != nil {
			return nil, err
		}
		key := edge.FromSymbolID + "\x1f" + edge.ToSymbolID + "\x1f" + edge.ToName + "\x1f" + edge.EdgeType
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		edges = append(edges, edge)
	}
	return edges, nil
}

func resolveOne(ctx context.Context, db relstore.DBTX, projectID, ref, importingPath, lang string, raw extract.RawImport) (*relstore.ImportEdge, error) {
	edge := &relstore.ImportEdge{
		ProjectID:    projectID,
		Ref:          ref,
		FromSymbolID: raw.SourceQualifiedName,
		EdgeType:     "import",
		Confidence:   relstore.ConfidenceStatic,
	}

	// Tier 1: exact qualified-name match.
	if raw.TargetQualifiedName != "" {
		matches, err := relstore.FindSymbolsByQualifiedName(ctx, db, projectID, ref, raw.TargetQualifiedName)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			edge.ToSymbolID = matches[0].SymbolStableID
			return edge, nil
		}
	}

	// Tier 2: short-name match, stable-sorted by line_start.
	if raw.TargetName != "" {
		matches, err := relstore.FindSymbolsByName(ctx, db, projectID, ref, raw.TargetName, "")
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			edge.ToSymbolID = matches[0].SymbolStableID
			return edge, nil
		}
	}

	// Tier 3: path-resolved candidate, only meaningful for file-scoped imports.
	if strings.HasPrefix(raw.SourceQualifiedName, "file::") {
		fromPath := strings.TrimPrefix(raw.SourceQualifiedName, "file::")
		if candidate := candidatePath(lang, fromPath, raw.TargetQualifiedName); candidate != "" {
			exists, err := manifestHasPath(ctx, db, projectID, ref, candidate)
			if err != nil {
				return nil, err
			}
			if exists {
				name := raw.TargetName
				if name == "" {
					name = raw.TargetQualifiedName
				}
				matches, err := symbolsAtPath(ctx, db, projectID, ref, candidate, name)
				if err != nil {
					return nil, err
				}
				if len(matches) > 0 {
					edge.ToSymbolID = matches[0].SymbolStableID
					return edge, nil
				}
			}
		}
	}

	if raw.TargetName != "" {
		edge.ToName = raw.TargetName
	} else {
		edge.ToName = raw.TargetQualifiedName
	}
	return edge, nil
}

// candidatePath derives the file a relative/module import resolves to,
// per language. Go imports name external packages by module path and
// are never locally resolvable this way; every other family is checked
// only when the written module path looks relative (or, for Python,
// when it names a local dotted package).
func candidatePath(lang, fromPath, targetQualifiedName string) string {
	if targetQualifiedName == "" {
		return ""
	}
	dir := path.Dir(fromPath)

	switch lang {
	case extract.LangTypeScript, extract.LangTSX, extract.LangJavaScript:
		if !strings.HasPrefix(targetQualifiedName, ".") {
			return "" // bare module specifier, external package
		}
		return path.Clean(path.Join(dir, targetQualifiedName))

	case extract.LangPython:
		rel := targetQualifiedName
		base := dir
		for strings.HasPrefix(rel, ".") {
			rel = strings.TrimPrefix(rel, ".")
			base = path.Dir(base)
		}
		if rel == "" {
			return ""
		}
		return path.Join(base, strings.ReplaceAll(rel, ".", "/"))

	default: // Go and anything else: unresolvable local candidate
		return ""
	}
}

// manifestHasPath checks every plausible file suffix for candidate
// (the extensionless stem path resolution rules above produce) against
// the manifest: exact path, then each language's default extensions and
// index/package-init forms.
func manifestHasPath(ctx context.Context, db relstore.DBTX, projectID, ref, candidate string) (bool, error) {
	for _, p := range candidateSuffixes(candidate) {
		entry, err := relstore.GetManifestEntry(ctx, db, projectID, ref, p)
		if err != nil {
			return false, err
		}
		if entry != nil {
			return true, nil
		}
	}
	return false, nil
}

func candidateSuffixes(stem string) []string {
	return []string{
		stem,
		stem + ".ts",
		stem + ".tsx",
		stem + ".js",
		stem + ".jsx",
		stem + ".py",
		path.Join(stem, "index.ts"),
		path.Join(stem, "index.tsx"),
		path.Join(stem, "index.js"),
		path.Join(stem, "__init__.py"),
	}
}

func symbolsAtPath(ctx context.Context, db relstore.DBTX, projectID, ref, candidate, name string) ([]*relstore.Symbol, error) {
	for _, p := range candidateSuffixes(candidate) {
		entry, err := relstore.GetManifestEntry(ctx, db, projectID, ref, p)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		byQualified, err := relstore.FindSymbolsByQualifiedName(ctx, db, projectID, ref, p+"::"+name)
		if err != nil {
			return nil, err
		}
		if len(byQualified) > 0 {
			return byQualified, nil
		}
		byName, err := relstore.FindSymbolsByName(ctx, db, projectID, ref, name, p)
		if err != nil {
			return nil, err
		}
		if len(byName) > 0 {
			return byName, nil
		}
	}
	return nil, nil
}
