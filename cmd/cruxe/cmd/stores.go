package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/signalridge/cruxe/internal/config"
	"github.com/signalridge/cruxe/internal/embed"
	"github.com/signalridge/cruxe/internal/ftindex"
	"github.com/signalridge/cruxe/internal/ids"
	"github.com/signalridge/cruxe/internal/mcpserver"
	"github.com/signalridge/cruxe/internal/relstore"
	"github.com/signalridge/cruxe/internal/search"
	"github.com/signalridge/cruxe/internal/vectorstore"
	"github.com/signalridge/cruxe/internal/worktree"
)

// session bundles an opened Stores with the resources only cmd/cruxe
// itself is responsible for tearing down (the raw *sql.DB, the two
// ftindex.IndexSets backing it, and the embedder).
type session struct {
	Stores *mcpserver.Stores

	db           *sql.DB
	baseIndex    *ftindex.IndexSet
	overlayIndex *ftindex.IndexSet
	embedder     embed.Embedder
}

func (s *session) Close() {
	if s.embedder != nil {
		_ = s.embedder.Close()
	}
	if s.overlayIndex != nil {
		_ = s.overlayIndex.Close()
	}
	if s.baseIndex != nil {
		_ = s.baseIndex.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// dataDirFor resolves the on-disk data directory for repoRoot, honoring
// --data-dir and falling back to the project config's paths.data_dir
// (itself defaulting to "<repo>/.cruxe").
func dataDirFor(repoRoot string, cfg *config.Config) string {
	dir := cfg.Paths.DataDir
	if flagDataDir != "" {
		dir = flagDataDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(repoRoot, dir)
	}
	return dir
}

// openProject resolves --project to its canonical repo root, loads
// configuration, and opens the relational store. Every subcommand that
// needs a Project row (including init, which creates one) starts here.
func openProject(ctx context.Context) (repoRoot string, cfg *config.Config, db *sql.DB, dataDir string, err error) {
	repoRoot, err = filepath.Abs(flagProject)
	if err != nil {
		return "", nil, nil, "", fmt.Errorf("resolve --project: %w", err)
	}
	root, rootErr := config.FindProjectRoot(repoRoot)
	if rootErr == nil {
		repoRoot = root
	}

	cfg, err = config.Load(repoRoot)
	if err != nil {
		return "", nil, nil, "", fmt.Errorf("load config: %w", err)
	}

	dataDir = dataDirFor(repoRoot, cfg)
	openCfg := relstore.OpenConfig{
		BusyTimeoutMs: cfg.Performance.BusyTimeoutMs,
		CacheSizeKiB:  cfg.Performance.SQLiteCacheMB * 1024,
	}
	db, err = relstore.Open(filepath.Join(dataDir, "relstore.db"), openCfg)
	if err != nil {
		return "", nil, nil, "", fmt.Errorf("open relational store: %w", err)
	}
	return repoRoot, cfg, db, dataDir, nil
}

// buildSession opens every store buildSession's callers need to run MCP
// tool functions against --ref (or the project's default ref): the
// relational store, base and (when ref has an overlay) overlay
// full-text indices, the embedder, the vector store, the worktree
// manager, and the search engine. The caller must call Close().
func buildSession(ctx context.Context) (*session, error) {
	repoRoot, cfg, db, dataDir, err := openProject(ctx)
	if err != nil {
		return nil, err
	}

	projectID := ids.ProjectID(repoRoot)
	project, err := relstore.GetProjectByRoot(ctx, db, repoRoot)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		_ = db.Close()
		return nil, fmt.Errorf("project not initialized at %s: run 'cruxe init' first", repoRoot)
	}

	ref := flagRef
	if ref == "" {
		ref = project.DefaultRef
	}

	indexDataDir := filepath.Join(dataDir, "data", projectID)
	baseRoot := ftindex.RootFor(indexDataDir, ftindex.TargetBase, "")
	baseIndex, err := ftindex.Open(baseRoot, ftindex.TargetBase)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open base index: %w", err)
	}

	var overlayIndex *ftindex.IndexSet
	overlayRef := ""
	if ref != project.DefaultRef {
		overlayRef = ref
		overlayRoot := ftindex.RootFor(indexDataDir, ftindex.TargetOverlay, ref)
		overlayIndex, err = ftindex.Open(overlayRoot, ftindex.TargetOverlay)
		if err != nil {
			_ = baseIndex.Close()
			_ = db.Close()
			return nil, fmt.Errorf("open overlay index for %s: %w", ref, err)
		}
	}

	embedder := buildEmbedder(ctx, cfg)

	dims := 0
	modelVersion := ""
	if embedder != nil {
		dims = embedder.Dimensions()
		modelVersion = embedder.ModelName()
	}
	if dims <= 0 {
		dims = 768
	}
	vecStore := vectorstore.New(dims, "cos")

	worktreesRoot := filepath.Join(dataDir, "worktrees")
	wt := worktree.NewManager(db, worktreesRoot, repoRoot, projectID, gitCheckoutWorktree)

	engineCfg := search.EngineConfig{
		SemanticRatio:    cfg.Search.SemanticRatio,
		MaxResponseBytes: cfg.Search.MaxResponseBytes,
		RRFConstant:      cfg.Search.RRFConstant,
		Planner:          search.DefaultEngineConfig().Planner,
	}
	engineCfg.Planner.Enabled = cfg.Search.PlannerEnabled
	engineCfg.Planner.AllowOverride = cfg.Search.PlannerAllowOverride

	engine := search.NewEngine(search.Dependencies{
		ProjectID:    projectID,
		Repo:         repoRoot,
		DefaultRef:   project.DefaultRef,
		BaseIndex:    baseIndex,
		BaseDB:       db,
		OverlayRef:   overlayRef,
		OverlayIndex: overlayIndex,
		OverlayDB:    db,
		Tombstones:   map[string]bool{},
		VectorStore:  vecStore,
		Embedder:     embedder,
		ModelVersion: modelVersion,
		Config:       engineCfg,
	})

	stores := &mcpserver.Stores{
		ProjectID:    projectID,
		Repo:         repoRoot,
		RepoRoot:     repoRoot,
		DefaultRef:   project.DefaultRef,
		DataDir:      indexDataDir,
		DB:           db,
		SQLDB:        db,
		VectorStore:  vecStore,
		Embedder:     embedder,
		ModelVersion: modelVersion,
		Worktree:     wt,
		Engine:       engine,
		SearchConfig: engineCfg,
	}
	maxFileSize, languages, excludeGlobs := indexPipelineOptions(cfg)
	stores.PipelineBase = mcpserver.NewPipelineBase(maxFileSize, languages, excludeGlobs, gitCurrentHeadRef)
	stores.IndexRoot = func(r string) (*ftindex.IndexSet, error) {
		target := ftindex.TargetBase
		key := ""
		if r != project.DefaultRef {
			target = ftindex.TargetOverlay
			key = r
		}
		return ftindex.Open(ftindex.RootFor(indexDataDir, target, key), target)
	}

	return &session{
		Stores:       stores,
		db:           db,
		baseIndex:    baseIndex,
		overlayIndex: overlayIndex,
		embedder:     embedder,
	}, nil
}

// buildEmbedder constructs the configured embedder, falling back to the
// static hash embedder (and logging a warning) rather than failing the
// whole command when no semantic provider is reachable — callers that
// need a hard failure on a missing provider should check doctor/health
// check output instead.
func buildEmbedder(ctx context.Context, cfg *config.Config) embed.Embedder {
	embedCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	embedder, err := embed.NewEmbedder(embedCtx, embed.ParseProvider(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	if err != nil {
		slog.Warn("semantic embedder unavailable, falling back to lexical-only search",
			slog.String("error", err.Error()))
		return embed.NewStaticEmbedder768()
	}
	return embedder
}

// indexPipelineOptions builds the portion of pipeline.Options that's
// constant across index/sync invocations for one project.
func indexPipelineOptions(cfg *config.Config) (maxFileSize int64, languages []string, excludeGlobs []string) {
	return cfg.Indexing.MaxFileSizeBytes, cfg.Indexing.Languages, cfg.Paths.Exclude
}
