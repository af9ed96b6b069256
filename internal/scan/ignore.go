package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// IgnoreMatcher holds compiled ignore-file patterns (gitignore grammar)
// and matches candidate paths against them in declaration order, last
// match wins, negations included.
type IgnoreMatcher struct {
	mu    sync.RWMutex
	rules []ignoreRule
}

type ignoreRule struct {
	source    string
	regex     *regexp.Regexp
	negation  bool
	dirOnly   bool
	anchored  bool
	base      string
	viaGlob   bool // true when the pattern that produced this rule contained a glob, not a bare directory name
}

// NewIgnoreMatcher returns an empty matcher.
func NewIgnoreMatcher() *IgnoreMatcher {
	return &IgnoreMatcher{}
}

// AddLine compiles and appends one ignore-file line, scoped to base
// (the directory the ignore file lives in, "" for the repo root).
func (m *IgnoreMatcher) AddLine(line, base string) {
	hasEscapedTrailingSpace := strings.HasSuffix(line, `\ `)
	line = strings.TrimSpace(line)
	if line == "" || (strings.HasPrefix(line, "#") && !strings.HasPrefix(line, `\#`)) {
		return
	}

	r := ignoreRule{source: line, base: base}

	if strings.HasPrefix(line, `\#`) || strings.HasPrefix(line, `\!`) {
		line = strings.TrimPrefix(line, `\`)
	} else if strings.HasPrefix(line, "!") {
		r.negation = true
		line = strings.TrimPrefix(line, "!")
	}

	if hasEscapedTrailingSpace && strings.HasSuffix(line, `\`) {
		line = strings.TrimSuffix(line, `\`) + " "
	}

	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.Contains(line, "/") && !strings.HasPrefix(line, "**/") && !strings.HasPrefix(line, "*") {
		r.anchored = true
	}
	r.viaGlob = strings.ContainsAny(line, "*?[")

	r.regex = regexp.MustCompile("^" + globToRegex(line) + "$")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// LoadFile reads an ignore file line by line into the matcher. A missing
// file is not an error — most directories have no override file.
func (m *IgnoreMatcher) LoadFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddLine(sc.Text(), base)
	}
	return sc.Err()
}

// Match reports whether path (slash-separated, relative to the repo
// root) is ignored. A negation rule only un-ignores a path whose
// enclosing match came from a glob pattern, never from a bare directory
// exclusion — re-provisioning a hard directory exclude is not honored.
func (m *IgnoreMatcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	ignoredViaGlob := false
	for _, r := range m.rules {
		if !matchesRule(path, isDir, r) {
			continue
		}
		if r.negation {
			if ignored && ignoredViaGlob {
				ignored = false
				ignoredViaGlob = false
			}
			continue
		}
		ignored = true
		ignoredViaGlob = r.viaGlob
	}
	return ignored
}

func matchesRule(path string, isDir bool, r ignoreRule) bool {
	if r.base != "" {
		if path != r.base && !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		if path == r.base {
			path = filepath.Base(path)
		} else {
			path = strings.TrimPrefix(path, r.base+"/")
		}
	}

	parts := strings.Split(path, "/")
	basename := parts[len(parts)-1]

	if r.anchored {
		if r.regex.MatchString(path) {
			if r.dirOnly {
				return isDir
			}
			return true
		}
		if r.dirOnly {
			for i := range parts[:len(parts)-1] {
				if r.regex.MatchString(strings.Join(parts[:i+1], "/")) {
					return true
				}
			}
		}
		return false
	}

	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	if r.regex.MatchString(basename) || r.regex.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// globToRegex translates one gitignore-grammar glob into a regex body
// (caller anchors with ^...$).
func globToRegex(pattern string) string {
	var out strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					out.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				if i == 0 || pattern[i-1] == '/' {
					out.WriteString(".*")
					i += 2
					continue
				}
			}
			out.WriteString("[^/]*")
			i++
		case '?':
			out.WriteString("[^/]")
			i++
		case '[':
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				out.WriteString(pattern[i : j+1])
				i = j + 1
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '\\':
			if i+1 < len(pattern) {
				out.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			out.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}
