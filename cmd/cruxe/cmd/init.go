package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalridge/cruxe/internal/ids"
	"github.com/signalridge/cruxe/internal/jobs"
	"github.com/signalridge/cruxe/internal/relstore"
)

func newInitCmd() *cobra.Command {
	var defaultRef string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Register a repository with cruxe",
		Long: `Creates the on-disk data directory and relational store for the
repository at --project, and writes a .cruxe.yaml with sensible defaults
if one doesn't already exist. Run this once before 'cruxe index'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			repoRoot, cfg, db, dataDir, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if defaultRef == "" {
				defaultRef = detectDefaultRef(repoRoot)
			}

			projectID := ids.ProjectID(repoRoot)
			existing, err := relstore.GetProjectByRoot(ctx, db, repoRoot)
			if err != nil {
				return fmt.Errorf("check existing project: %w", err)
			}

			project := &relstore.Project{
				ProjectID:     projectID,
				RepoRoot:      repoRoot,
				DefaultRef:    defaultRef,
				VCSMode:       "git",
				SchemaVersion: jobs.CurrentSchemaVersion,
			}
			if existing != nil {
				project.DefaultRef = existing.DefaultRef
				project.SchemaVersion = existing.SchemaVersion
				project.CreatedAt = existing.CreatedAt
			}
			if err := relstore.SaveProject(ctx, db, project); err != nil {
				return fmt.Errorf("save project: %w", err)
			}

			cruxeYAML := filepath.Join(repoRoot, ".cruxe.yaml")
			if !fileExists(cruxeYAML) {
				if err := cfg.WriteYAML(cruxeYAML); err != nil {
					return fmt.Errorf("write .cruxe.yaml: %w", err)
				}
			}

			if flagJSON {
				return writeJSON(cmd, map[string]any{
					"project_id": projectID,
					"repo_root":  repoRoot,
					"default_ref": project.DefaultRef,
					"data_dir":   dataDir,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized cruxe project %s at %s (default ref: %s)\n", projectID, repoRoot, project.DefaultRef)
			fmt.Fprintf(cmd.OutOrStdout(), "Data directory: %s\n", dataDir)
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'cruxe index' to build the initial index.")
			return nil
		},
	}

	cmd.Flags().StringVar(&defaultRef, "default-ref", "", "Default ref for this project (default: detected from git HEAD)")
	return cmd
}

// detectDefaultRef resolves the repository's current branch, falling
// back to a bare HEAD commit and finally "main" when git is unavailable.
func detectDefaultRef(repoRoot string) string {
	if out, err := runGit(repoRoot, "symbolic-ref", "--short", "HEAD"); err == nil {
		ref := trimNewline(out)
		if ref != "" {
			return ref
		}
	}
	if head, err := gitCurrentHeadRef(repoRoot); err == nil && head != "" {
		return head
	}
	return "main"
}
