// Package scan walks a repository worktree and yields the set of files
// the indexing pipeline should read: VCS-ignored and built-in-ignored
// paths are skipped, then the repo-local .cruxeignore is applied, then
// the size and language filters from the caller's Options.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options bounds one scan.
type Options struct {
	// MaxFileSize in bytes; files larger than this are skipped. A file
	// exactly at the limit is kept.
	MaxFileSize int64
	// EnabledLanguages restricts extraction to these language ids
	// (the values of LanguageByExtension, e.g. "go"). Empty means no filter.
	EnabledLanguages []string
	// ExtraExcludeGlobs are caller-supplied glob patterns (e.g. from
	// PathsConfig.Exclude), applied the same way as built-in excludes.
	ExtraExcludeGlobs []string
}

// FileEntry describes one file the pipeline should consider.
type FileEntry struct {
	// Path is slash-separated, relative to the repository root.
	Path     string
	AbsPath  string
	Size     int64
	ModeTime int64 // mtime in nanoseconds since epoch
	Language string
	IsBinary bool
}

// builtinExcludeDirs are always pruned regardless of .gitignore content.
var builtinExcludeDirs = []string{
	".git", ".hg", ".svn", ".jj",
	"node_modules", "vendor", "target", "__pycache__",
	"venv", ".venv", "env", ".tox",
	"dist", "build", "out", ".next", ".nuxt",
	".idea", ".vscode", ".DS_Store",
	"bin", "obj",
	".terraform", ".cache",
}

// builtinExcludeExtensions are compiled-artifact / binary-asset
// extensions never worth reading.
var builtinExcludeExtensions = map[string]bool{
	".o": true, ".a": true, ".so": true, ".dylib": true, ".dll": true,
	".exe": true, ".class": true, ".jar": true, ".war": true,
	".pyc": true, ".pyo": true, ".wasm": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".pdf": true, ".zip": true, ".tar": true, ".gz": true,
	".7z": true, ".rar": true, ".woff": true, ".woff2": true, ".ttf": true,
	".eot": true, ".mp3": true, ".mp4": true, ".mov": true, ".avi": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
}

// builtinExcludeGlobs target generated files that slip past the
// extension list (minified bundles, lockfiles, snapshots).
var builtinExcludeGlobs = []string{
	"*.min.js", "*.min.css", "*.generated.*", "*_pb2.py", "*.pb.go",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum",
	"Cargo.lock", "*.snap",
}

const cruxeignoreFilename = ".cruxeignore"

// LanguageByExtension maps a lowercased file extension (with leading
// dot) to the language id the extractor registry keys on. Extensions
// with no entry are treated as unsupported for symbol extraction but
// still indexed as plain files.
var LanguageByExtension = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".mts":   "typescript",
	".tsx":   "tsx",
	".py":    "python",
	".pyi":   "python",
}

// Walk walks root honouring gitRules (the repository's compiled
// .gitignore rule set, may be nil) plus the built-in excludes, the
// repo-local .cruxeignore, and opts' size/language filters. Results are
// returned sorted by path for deterministic manifests.
func Walk(root string, gitRules *IgnoreMatcher, opts Options) ([]FileEntry, error) {
	cruxeignore := NewIgnoreMatcher()
	if err := cruxeignore.LoadFile(filepath.Join(root, cruxeignoreFilename), ""); err != nil {
		return nil, err
	}

	extraGlobs := NewIgnoreMatcher()
	for _, g := range builtinExcludeGlobs {
		extraGlobs.AddLine(g, "")
	}
	for _, g := range opts.ExtraExcludeGlobs {
		extraGlobs.AddLine(g, "")
	}

	var out []FileEntry
	err := filepath.Walk(root, func(absPath string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if absPath == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, absPath)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			base := filepath.Base(rel)
			for _, d := range builtinExcludeDirs {
				if base == d {
					return filepath.SkipDir
				}
			}
			if gitRules != nil && gitRules.Match(rel, true) {
				return filepath.SkipDir
			}
			if cruxeignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(rel))
		if builtinExcludeExtensions[ext] {
			return nil
		}
		if extraGlobs.Match(rel, false) {
			return nil
		}
		if gitRules != nil && gitRules.Match(rel, false) {
			return nil
		}
		if cruxeignore.Match(rel, false) {
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			return nil
		}

		lang := LanguageByExtension[ext]
		if len(opts.EnabledLanguages) > 0 && lang != "" && !containsStr(opts.EnabledLanguages, lang) {
			return nil
		}

		out = append(out, FileEntry{
			Path:     rel,
			AbsPath:  absPath,
			Size:     info.Size(),
			ModeTime: info.ModTime().UnixNano(),
			Language: lang,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// LoadGitignore compiles the chain of .gitignore files from root down to
// each subdirectory into one matcher, root-relative.
func LoadGitignore(root string) (*IgnoreMatcher, error) {
	m := NewIgnoreMatcher()
	err := filepath.Walk(root, func(absPath string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(absPath)
		if absPath != root {
			for _, d := range builtinExcludeDirs {
				if base == d {
					return filepath.SkipDir
				}
			}
		}
		gi := filepath.Join(absPath, ".gitignore")
		rel, _ := filepath.Rel(root, absPath)
		if rel == "." {
			rel = ""
		}
		return m.LoadFile(gi, filepath.ToSlash(rel))
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
