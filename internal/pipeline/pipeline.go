// Package pipeline runs the indexing algorithm: resolve ref, open
// stores, create a job, scan the repository, extract and persist
// symbols/imports/calls per file, resolve imports once the whole symbol
// table is known, and commit full-text before relational so the
// relational store stays authoritative.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/extract"
	"github.com/signalridge/cruxe/internal/ftindex"
	"github.com/signalridge/cruxe/internal/ids"
	"github.com/signalridge/cruxe/internal/importresolve"
	"github.com/signalridge/cruxe/internal/relstore"
	"github.com/signalridge/cruxe/internal/scan"
)

// Options configures one indexing run.
type Options struct {
	RepoRoot          string
	Ref               string // explicit override; empty triggers ResolveRef fallthrough
	Force             bool
	DataDir           string // <data_dir>/data/<project_id>
	MaxFileSize       int64
	EnabledLanguages  []string
	ExtraExcludeGlobs []string

	// CurrentHeadRef resolves the VCS current branch; nil or an error
	// return falls through to DefaultRef. Optional — VCS integration is
	// injected so this package never imports a VCS library directly.
	CurrentHeadRef func(repoRoot string) (string, error)
	DefaultRef     string
}

// Report summarizes a completed (or failed) run.
type Report struct {
	JobID            string
	Ref              string
	Mode             relstore.JobMode
	FilesScanned     int64
	FilesIndexed     int64
	SymbolsExtracted int64
	ChangedFiles     int64
	RemovedCount     int64
	Skipped          int64
	DurationMs       int64
}

// ResolveRef implements the explicit > current-head > project-default order.
func ResolveRef(opts Options) string {
	if opts.Ref != "" {
		return opts.Ref
	}
	if opts.CurrentHeadRef != nil {
		if head, err := opts.CurrentHeadRef(opts.RepoRoot); err == nil && head != "" {
			return head
		}
	}
	return opts.DefaultRef
}

// Run executes the full indexing algorithm for one (project, ref).
func Run(ctx context.Context, db *sql.DB, projectID string, opts Options) (_ *Report, err error) {
	start := time.Now()
	ref := ResolveRef(opts)

	project, loadErr := relstore.GetBranchState(ctx, db, projectID, ref)
	if loadErr != nil {
		return nil, loadErr
	}
	mode := relstore.ModeIncremental
	if opts.Force || project == nil {
		mode = relstore.ModeFull
	}

	target := ftindex.TargetOverlay
	if opts.DefaultRef != "" && ref == opts.DefaultRef {
		target = ftindex.TargetBase
	}
	root := ftindex.RootFor(opts.DataDir, target, ref)

	idxSet, openErr := ftindex.Open(root, target)
	if openErr != nil {
		if opts.Force && cerrors.Code(openErr) == cerrors.IndexIncompatible {
			if rmErr := ftindex.DeleteRoot(root); rmErr != nil {
				return nil, rmErr
			}
			idxSet, openErr = ftindex.Open(root, target)
		}
		if openErr != nil {
			return nil, openErr
		}
	}
	defer idxSet.Close()

	job := &relstore.Job{
		JobID:     fmt.Sprintf("%s-%s-%d", projectID, ids.NormalizeRef(ref), time.Now().UnixNano()),
		ProjectID: projectID,
		Ref:       ref,
		Mode:      mode,
		Status:    relstore.JobRunning,
	}
	if createErr := relstore.CreateJob(ctx, db, job); createErr != nil {
		return nil, createErr
	}

	report := &Report{JobID: job.JobID, Ref: ref, Mode: mode}
	report, err = runJob(ctx, db, idxSet, projectID, ref, mode, opts, report)

	durationMs := time.Since(start).Milliseconds()
	report.DurationMs = durationMs
	if err != nil {
		errMsg := err.Error()
		_ = relstore.UpdateJobStatus(ctx, db, job.JobID, relstore.JobFailed, nil, &durationMs, &errMsg)
		return report, err
	}
	changed := report.ChangedFiles
	_ = relstore.UpdateJobStatus(ctx, db, job.JobID, relstore.JobPublished, &changed, &durationMs, nil)
	return report, nil
}

// runJob runs steps 4-11 of the algorithm inside one outer transaction.
func runJob(ctx context.Context, db *sql.DB, idxSet *ftindex.IndexSet, projectID, ref string, mode relstore.JobMode, opts Options, report *Report) (_ *Report, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return report, cerrors.New(cerrors.InternalError, fmt.Sprintf("begin transaction: %v", err), err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback() // best-effort: tolerates an already-closed tx on the error path
		}
	}()

	writer := ftindex.NewBatchWriter(idxSet)

	if mode == relstore.ModeFull {
		if err = scopeClear(ctx, tx, writer, projectID, ref); err != nil {
			return report, err
		}
	}

	gitRules, err := scan.LoadGitignore(opts.RepoRoot)
	if err != nil {
		return report, cerrors.New(cerrors.InternalError, fmt.Sprintf("load gitignore: %v", err), err)
	}
	files, err := scan.Walk(opts.RepoRoot, gitRules, scan.Options{
		MaxFileSize:       opts.MaxFileSize,
		EnabledLanguages:  opts.EnabledLanguages,
		ExtraExcludeGlobs: opts.ExtraExcludeGlobs,
	})
	if err != nil {
		return report, cerrors.New(cerrors.InternalError, fmt.Sprintf("scan repository: %v", err), err)
	}
	report.FilesScanned = int64(len(files))

	if mode == relstore.ModeIncremental {
		removed, rmErr := removalPass(ctx, tx, writer, projectID, ref, files)
		if rmErr != nil {
			return report, rmErr
		}
		report.RemovedCount = removed
	}

	type deferredImport struct {
		path string
		lang string
		raws []extract.RawImport
	}
	var deferred []deferredImport

	parser := extract.NewParser()
	defer parser.Close()

	for _, f := range files {
		indexed, symbolCount, raws, ferr := indexFile(ctx, tx, writer, parser, projectID, ref, mode, f)
		if ferr != nil {
			return report, ferr
		}
		if !indexed {
			continue
		}
		report.FilesIndexed++
		report.ChangedFiles++
		report.SymbolsExtracted += int64(symbolCount)
		if len(raws) > 0 {
			deferred = append(deferred, deferredImport{path: f.Path, lang: f.Language, raws: raws})
		}
	}

	for _, d := range deferred {
		if err = importresolve.ReplaceForFile(ctx, tx, projectID, ref, d.path, d.lang, d.raws); err != nil {
			return report, err
		}
	}

	if err = writer.Commit(); err != nil {
		return report, err
	}
	if err = tx.Commit(); err != nil {
		return report, cerrors.New(cerrors.InternalError, fmt.Sprintf("commit transaction: %v", err), err)
	}
	committed = true

	now := time.Now().UTC()
	bs := &relstore.BranchState{
		ProjectID:   projectID,
		Ref:         ref,
		FileCount:   len(files),
		SymbolCount: int(report.SymbolsExtracted),
		Status:      relstore.BranchActive,
		LastUsedAt:  now,
	}
	if err = relstore.UpsertBranchState(ctx, db, bs); err != nil {
		return report, err
	}
	return report, nil
}

func scopeClear(ctx context.Context, tx *sql.Tx, writer *ftindex.BatchWriter, projectID, ref string) error {
	if err := writer.DeleteByRef(ref); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_edges WHERE project_id = ? AND ref = ?`, projectID, ref); err != nil {
		return cerrors.Sqlite(err.Error())
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_call_edges WHERE project_id = ? AND ref = ?`, projectID, ref); err != nil {
		return cerrors.Sqlite(err.Error())
	}
	if err := relstore.DeleteManifestForRef(ctx, tx, projectID, ref); err != nil {
		return err
	}
	return nil
}

func removalPass(ctx context.Context, tx *sql.Tx, writer *ftindex.BatchWriter, projectID, ref string, scanned []scan.FileEntry) (int64, error) {
	present := make(map[string]bool, len(scanned))
	for _, f := range scanned {
		present[f.Path] = true
	}
	manifestPaths, err := relstore.ListManifestPaths(ctx, tx, projectID, ref)
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, path := range manifestPaths {
		if present[path] {
			continue
		}
		fileKey := ids.FileKey(projectID, ref, path)
		if err := writer.DeleteByFileKey(fileKey); err != nil {
			return removed, err
		}
		if err := relstore.DeleteSymbolsForFile(ctx, tx, projectID, ref, path); err != nil {
			return removed, err
		}
		if err := relstore.DeleteImportEdgesForFile(ctx, tx, projectID, ref, ids.FilePseudoSymbolID(path)); err != nil {
			return removed, err
		}
		if err := relstore.DeleteCallEdgesForFile(ctx, tx, projectID, ref, path); err != nil {
			return removed, err
		}
		if err := relstore.DeleteManifestEntry(ctx, tx, projectID, ref, path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// indexFile runs steps 8.a-8.g for one file. It returns indexed=false
// when an incremental run's content hash is unchanged, meaning no work
// happened and the file contributes nothing to this run's counters.
func indexFile(ctx context.Context, tx *sql.Tx, writer *ftindex.BatchWriter, parser *extract.Parser, projectID, ref string, mode relstore.JobMode, f scan.FileEntry) (bool, int, []extract.RawImport, error) {
	data, readErr := os.ReadFile(f.AbsPath)
	if readErr != nil {
		slog.Warn("skipping unreadable file", slog.String("path", f.Path), slog.String("error", readErr.Error()))
		return false, 0, nil, nil // read failure: warn-and-skip per the algorithm, not a hard error
	}
	contentHash := ids.ContentHash(data)

	if mode == relstore.ModeIncremental {
		existing, err := relstore.GetManifestEntry(ctx, tx, projectID, ref, f.Path)
		if err != nil {
			return false, 0, nil, err
		}
		if existing != nil && existing.ContentHash == contentHash {
			return false, 0, nil, nil
		}
	}

	fileKey := ids.FileKey(projectID, ref, f.Path)
	if err := writer.DeleteByFileKey(fileKey); err != nil {
		return false, 0, nil, err
	}

	var result extract.Result
	if extract.Supported(f.Language) {
		result = extract.Extract(ctx, parser, data, f.Language, f.Path)
	}

	symbols := make([]*relstore.Symbol, 0, len(result.Symbols))
	symbolDocs := make([]*ftindex.SymbolDoc, 0, len(result.Symbols))
	stableIDByQualified := make(map[string]string, len(result.Symbols))
	for _, s := range result.Symbols {
		sigHash := ids.ContentHash([]byte(s.Signature + s.Content))
		stableID := ids.SymbolStableID(s.QualifiedName, string(s.Kind), f.Path, sigHash)
		stableIDByQualified[s.QualifiedName] = stableID
		parentID := ""
		if s.ParentName != "" {
			parentID = stableIDByQualified[s.ParentName]
		}
		symbols = append(symbols, &relstore.Symbol{
			ProjectID:      projectID,
			Ref:            ref,
			SymbolID:       stableID,
			SymbolStableID: stableID,
			Name:           s.Name,
			QualifiedName:  s.QualifiedName,
			Kind:           s.Kind,
			Path:           f.Path,
			LineStart:      s.LineStart,
			LineEnd:        s.LineEnd,
			ParentSymbolID: parentID,
			Visibility:     s.Visibility,
			Signature:      s.Signature,
			Content:        s.Content,
		})
		symbolDocs = append(symbolDocs, &ftindex.SymbolDoc{
			FileKey:        fileKey,
			Ref:            ref,
			ProjectID:      projectID,
			Path:           f.Path,
			SymbolStableID: stableID,
			Name:           s.Name,
			QualifiedName:  s.QualifiedName,
			Kind:           string(s.Kind),
			Signature:      s.Signature,
			Content:        s.Content,
			LineStart:      s.LineStart,
			LineEnd:        s.LineEnd,
			Language:       f.Language,
		})
	}

	if err := relstore.ReplaceSymbolsForFile(ctx, tx, projectID, ref, f.Path, symbols); err != nil {
		return false, 0, nil, err
	}

	for _, doc := range symbolDocs {
		if err := writer.AddSymbol(doc); err != nil {
			return false, 0, nil, err
		}
	}
	for _, s := range symbols {
		snippetDoc := &ftindex.SnippetDoc{
			FileKey:   fileKey,
			Ref:       ref,
			ProjectID: projectID,
			Path:      f.Path,
			ChunkType: string(s.Kind),
			Content:   s.Content,
			LineStart: s.LineStart,
			LineEnd:   s.LineEnd,
			Language:  f.Language,
		}
		docID := fmt.Sprintf("%s:%d:%d", fileKey, s.LineStart, s.LineEnd)
		if err := writer.AddSnippet(docID, snippetDoc); err != nil {
			return false, 0, nil, err
		}
	}

	fileDoc := &ftindex.FileDoc{
		FileKey:   fileKey,
		Ref:       ref,
		ProjectID: projectID,
		Path:      f.Path,
		Language:  f.Language,
		Content:   headLines(data, 20),
		SizeBytes: f.Size,
	}
	if err := writer.AddFile(fileDoc); err != nil {
		return false, 0, nil, err
	}

	callEdges := make([]*relstore.CallEdge, 0, len(result.Calls))
	for _, c := range result.Calls {
		fromID := c.FromQualifiedName
		if id, ok := stableIDByQualified[c.FromQualifiedName]; ok {
			fromID = id
		}
		callEdges = append(callEdges, &relstore.CallEdge{
			ProjectID:    projectID,
			Ref:          ref,
			FromSymbolID: fromID,
			ToName:       c.CalleeName,
			SourceFile:   f.Path,
			SourceLine:   c.CallLine,
			Confidence:   relstore.ConfidenceHeuristic,
		})
	}
	if err := relstore.ReplaceCallEdgesForFile(ctx, tx, projectID, ref, f.Path, callEdges); err != nil {
		return false, 0, nil, err
	}

	manifestEntry := &relstore.ManifestEntry{
		ProjectID:   projectID,
		Ref:         ref,
		Path:        f.Path,
		ContentHash: contentHash,
		SizeBytes:   f.Size,
		MtimeNs:     &f.ModeTime,
		Language:    f.Language,
	}
	if err := relstore.UpsertManifestEntry(ctx, tx, manifestEntry); err != nil {
		return false, 0, nil, err
	}

	return true, len(symbols), result.Imports, nil
}

func headLines(data []byte, n int) string {
	lines := 0
	for i, b := range data {
		if b == '\n' {
			lines++
			if lines >= n {
				return string(data[:i])
			}
		}
	}
	return string(data)
}
