package mcpserver

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signalridge/cruxe/internal/relstore"
)

// testFixture bundles an in-memory relational store seeded with a small
// project graph: two files under ref "main", a caller symbol that
// imports and calls a callee symbol, plus a second ref "feature" holding
// a modified copy of the callee for compare_symbol_between_refs.
type testFixture struct {
	db        *sql.DB
	projectID string
	ref       string
	otherRef  string
}

const (
	fixtureCalleeStableID = "stable-callee"
	fixtureCallerStableID = "stable-caller"
)

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	db, err := relstore.Open("", relstore.DefaultOpenConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	projectID := "proj-1"
	require.NoError(t, relstore.SaveProject(ctx, db, &relstore.Project{
		ProjectID:     projectID,
		RepoRoot:      "/repo",
		DefaultRef:    "main",
		VCSMode:       "git",
		SchemaVersion: 1,
	}))

	f := &testFixture{db: db, projectID: projectID, ref: "main", otherRef: "feature"}
	f.seedRef(t, f.ref, "func Callee() {}\n", "func Caller() {\n\tCallee()\n}\n")
	f.seedRef(t, f.otherRef, "func Callee() {\n\t// changed\n}\n", "func Caller() {\n\tCallee()\n}\n")

	require.NoError(t, relstore.UpsertBranchState(ctx, db, &relstore.BranchState{
		ProjectID: projectID, Ref: f.ref, Status: relstore.BranchActive,
		LastIndexedCommit: "headsha", IsDefault: true, FileCount: 2, SymbolCount: 2,
	}))
	require.NoError(t, relstore.UpsertBranchState(ctx, db, &relstore.BranchState{
		ProjectID: projectID, Ref: f.otherRef, Status: relstore.BranchActive,
		LastIndexedCommit: "featuresha", FileCount: 2, SymbolCount: 2,
	}))

	return f
}

func (f *testFixture) seedRef(t *testing.T, ref, calleeBody, callerBody string) {
	t.Helper()
	ctx := context.Background()

	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	callee := &relstore.Symbol{
		ProjectID: f.projectID, Ref: ref, SymbolID: "callee", SymbolStableID: fixtureCalleeStableID,
		Name: "Callee", QualifiedName: "pkg.Callee", Kind: relstore.KindFunction,
		Path: "callee.go", LineStart: 1, LineEnd: 1, Visibility: "public",
		Signature: "func Callee()", Content: calleeBody,
	}
	caller := &relstore.Symbol{
		ProjectID: f.projectID, Ref: ref, SymbolID: "caller", SymbolStableID: fixtureCallerStableID,
		Name: "Caller", QualifiedName: "pkg.Caller", Kind: relstore.KindFunction,
		Path: "caller.go", LineStart: 1, LineEnd: 3, Visibility: "public",
		Signature: "func Caller()", Content: callerBody,
	}
	require.NoError(t, relstore.ReplaceSymbolsForFile(ctx, tx, f.projectID, ref, "callee.go", []*relstore.Symbol{callee}))
	require.NoError(t, relstore.ReplaceSymbolsForFile(ctx, tx, f.projectID, ref, "caller.go", []*relstore.Symbol{caller}))

	require.NoError(t, relstore.ReplaceImportEdgesForFile(ctx, tx, f.projectID, ref, fixtureCallerStableID, []*relstore.ImportEdge{
		{ProjectID: f.projectID, Ref: ref, FromSymbolID: fixtureCallerStableID, ToSymbolID: fixtureCalleeStableID,
			EdgeType: "call", Confidence: relstore.ConfidenceStatic},
	}))
	require.NoError(t, relstore.ReplaceCallEdgesForFile(ctx, tx, f.projectID, ref, "caller.go", []*relstore.CallEdge{
		{ProjectID: f.projectID, Ref: ref, FromSymbolID: fixtureCallerStableID, ToSymbolID: fixtureCalleeStableID,
			SourceFile: "caller.go", SourceLine: 2, Confidence: relstore.ConfidenceStatic},
	}))

	require.NoError(t, relstore.UpsertManifestEntry(ctx, f.db, &relstore.ManifestEntry{
		ProjectID: f.projectID, Ref: ref, Path: "callee.go", ContentHash: "h1", SizeBytes: int64(len(calleeBody)), Language: "go",
	}))
	require.NoError(t, relstore.UpsertManifestEntry(ctx, f.db, &relstore.ManifestEntry{
		ProjectID: f.projectID, Ref: ref, Path: "caller.go", ContentHash: "h2", SizeBytes: int64(len(callerBody)), Language: "go",
	}))

	require.NoError(t, tx.Commit())
}

// addExtraSymbolNamed inserts one more symbol into f.ref sharing a short
// name with an existing symbol but under a distinct qualified name and
// file, to exercise locate_symbol's ambiguous-match path.
func (f *testFixture) addExtraSymbolNamed(t *testing.T, name, path, qualifiedName string) {
	t.Helper()
	ctx := context.Background()
	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	sym := &relstore.Symbol{
		ProjectID: f.projectID, Ref: f.ref, SymbolID: "extra-" + name, SymbolStableID: "stable-extra-" + name,
		Name: name, QualifiedName: qualifiedName, Kind: relstore.KindFunction,
		Path: path, LineStart: 1, LineEnd: 1, Visibility: "public",
		Signature: "func " + name + "()", Content: "func " + name + "() {}\n",
	}
	require.NoError(t, relstore.ReplaceSymbolsForFile(ctx, tx, f.projectID, f.ref, path, []*relstore.Symbol{sym}))
	require.NoError(t, tx.Commit())
}

// addChildOf inserts a "Nested" symbol parented under parentSymbolID
// (an existing symbol's ephemeral symbol_id) in the given file, for
// get_symbol_hierarchy's children traversal.
func (f *testFixture) addChildOf(t *testing.T, parentSymbolID, path string) {
	t.Helper()
	ctx := context.Background()
	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	parent := &relstore.Symbol{
		ProjectID: f.projectID, Ref: f.ref, SymbolID: parentSymbolID, SymbolStableID: fixtureCalleeStableID,
		Name: "Callee", QualifiedName: "pkg.Callee", Kind: relstore.KindFunction,
		Path: path, LineStart: 1, LineEnd: 1, Visibility: "public",
		Signature: "func Callee()", Content: "func Callee() {}\n",
	}
	child := &relstore.Symbol{
		ProjectID: f.projectID, Ref: f.ref, SymbolID: "nested", SymbolStableID: "stable-nested",
		Name: "Nested", QualifiedName: "pkg.Callee.Nested", Kind: relstore.KindFunction,
		Path: path, LineStart: 2, LineEnd: 2, ParentSymbolID: parentSymbolID, Visibility: "private",
		Signature: "func nested()", Content: "func nested() {}\n",
	}
	require.NoError(t, relstore.ReplaceSymbolsForFile(ctx, tx, f.projectID, f.ref, path, []*relstore.Symbol{parent, child}))
	require.NoError(t, tx.Commit())
}

func (f *testFixture) stores() *Stores {
	return &Stores{
		ProjectID:  f.projectID,
		RepoRoot:   "/repo",
		DefaultRef: f.ref,
		DB:         f.db,
		SQLDB:      f.db,
	}
}
