package mcpserver

import (
	"context"
	"strings"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// maxLCSLines bounds the line-diff algorithm's quadratic cost; bodies
// longer than this on either side fall back to a coarse length delta.
const maxLCSLines = 2000

// CompareSymbolBetweenRefsInput is compare_symbol_between_refs's
// validated arguments.
type CompareSymbolBetweenRefsInput struct {
	Name     string
	Path     string // optional disambiguation
	BaseRef  string
	HeadRef  string
}

// SymbolDiffSummary reports how a symbol changed between two refs.
type SymbolDiffSummary struct {
	Status           string `json:"status"` // unchanged, modified, added, deleted
	SignatureChanged *bool  `json:"signature_changed,omitempty"`
	BodyChanged      *bool  `json:"body_changed,omitempty"`
	LinesAdded       *int   `json:"lines_added,omitempty"`
	LinesRemoved     *int   `json:"lines_removed,omitempty"`
	LineRangeShifted *bool  `json:"line_range_shifted,omitempty"`
	Renamed          bool   `json:"renamed"`
}

// CompareSymbolBetweenRefsOutput is the full comparison result.
type CompareSymbolBetweenRefsOutput struct {
	Symbol         string            `json:"symbol"`
	Path           string            `json:"path"`
	SymbolStableID string            `json:"symbol_stable_id,omitempty"`
	BaseRef        string            `json:"base_ref"`
	HeadRef        string            `json:"head_ref"`
	BaseVersion    *SymbolView       `json:"base_version,omitempty"`
	HeadVersion    *SymbolView       `json:"head_version,omitempty"`
	DiffSummary    SymbolDiffSummary `json:"diff_summary"`
}

// CompareSymbolBetweenRefs resolves the same symbol in two refs and
// reports signature/body/line-range drift, ported from the original
// implementation's symbol_compare module (LCS-based line diff, coarse
// fallback above maxLCSLines, renamed heuristic on a shared stable ID).
func CompareSymbolBetweenRefs(ctx context.Context, s *Stores, in CompareSymbolBetweenRefsInput) (*CompareSymbolBetweenRefsOutput, Metadata, error) {
	base, err := resolveSymbol(ctx, s, in.BaseRef, "", in.Name, in.Path)
	if err != nil {
		return nil, Metadata{}, err
	}
	head, err := resolveSymbol(ctx, s, in.HeadRef, "", in.Name, in.Path)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta, err := s.metadataFor(ctx, in.HeadRef, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	if base == nil && head == nil {
		return nil, meta, cerrors.New(cerrors.SymbolNotFound, "symbol not found in either ref", nil)
	}

	symbolName := in.Name
	selectedPath := in.Path
	var stableID string
	if primary := firstNonNilSymbol(head, base); primary != nil {
		symbolName = primary.Name
		if selectedPath == "" {
			selectedPath = primary.Path
		}
		stableID = primary.SymbolStableID
	}

	out := &CompareSymbolBetweenRefsOutput{
		Symbol:         symbolName,
		Path:           selectedPath,
		SymbolStableID: stableID,
		BaseRef:        in.BaseRef,
		HeadRef:        in.HeadRef,
		DiffSummary:    buildDiffSummary(base, head),
	}
	if base != nil {
		v := toSymbolView(base)
		out.BaseVersion = &v
	}
	if head != nil {
		v := toSymbolView(head)
		out.HeadVersion = &v
	}
	if base != nil && head != nil && base.SymbolStableID == head.SymbolStableID && base.QualifiedName != head.QualifiedName {
		out.DiffSummary.Renamed = true
	}

	return out, meta, nil
}

func firstNonNilSymbol(candidates ...*relstore.Symbol) *relstore.Symbol {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func buildDiffSummary(base, head *relstore.Symbol) SymbolDiffSummary {
	switch {
	case base != nil && head != nil:
		sigChanged := base.Signature != head.Signature
		bodyChanged := base.Content != head.Content
		added, removed := modifiedLineDelta(base, head)
		rangeShifted := base.LineStart != head.LineStart || base.LineEnd != head.LineEnd
		status := "modified"
		if !sigChanged && !bodyChanged && !rangeShifted {
			status = "unchanged"
		}
		return SymbolDiffSummary{
			Status:           status,
			SignatureChanged: boolPtr(sigChanged),
			BodyChanged:      boolPtr(bodyChanged),
			LinesAdded:       intPtr(added),
			LinesRemoved:     intPtr(removed),
			LineRangeShifted: boolPtr(rangeShifted),
		}
	case base == nil && head != nil:
		return SymbolDiffSummary{
			Status:           "added",
			SignatureChanged: boolPtr(true),
			BodyChanged:      boolPtr(true),
			LinesAdded:       intPtr(lineCount(head)),
			LinesRemoved:     intPtr(0),
			LineRangeShifted: boolPtr(true),
		}
	case base != nil && head == nil:
		return SymbolDiffSummary{
			Status:           "deleted",
			SignatureChanged: boolPtr(true),
			BodyChanged:      boolPtr(true),
			LinesAdded:       intPtr(0),
			LinesRemoved:     intPtr(lineCount(base)),
			LineRangeShifted: boolPtr(true),
		}
	default:
		return SymbolDiffSummary{Status: "unchanged"}
	}
}

func lineSpan(sym *relstore.Symbol) int {
	span := sym.LineEnd - sym.LineStart + 1
	if span < 0 {
		span = 0
	}
	return span
}

func lineCount(sym *relstore.Symbol) int {
	if sym.Content == "" {
		return lineSpan(sym)
	}
	count := strings.Count(sym.Content, "\n") + 1
	if count > 0 {
		return count
	}
	return lineSpan(sym)
}

func modifiedLineDelta(base, head *relstore.Symbol) (added, removed int) {
	if base.Content == "" || head.Content == "" {
		baseSpan, headSpan := lineSpan(base), lineSpan(head)
		return nonNegative(headSpan - baseSpan), nonNegative(baseSpan - headSpan)
	}
	return lineDiffCounts(base.Content, head.Content)
}

func lineDiffCounts(baseContent, headContent string) (added, removed int) {
	baseLines := strings.Split(baseContent, "\n")
	headLines := strings.Split(headContent, "\n")
	if stringSlicesEqual(baseLines, headLines) {
		return 0, 0
	}
	if len(baseLines) > maxLCSLines || len(headLines) > maxLCSLines {
		added = nonNegative(len(headLines) - len(baseLines))
		removed = nonNegative(len(baseLines) - len(headLines))
		if added == 0 && removed == 0 {
			return 1, 1
		}
		return added, removed
	}

	lcs := lcsLength(baseLines, headLines)
	return len(headLines) - lcs, len(baseLines) - lcs
}

// lcsLength computes the longest-common-subsequence length of two line
// slices using the standard O(n*m) dynamic-programming table, kept to a
// single rolling row of state.
func lcsLength(left, right []string) int {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	prev := make([]int, len(right)+1)
	for _, l := range left {
		curr := make([]int, len(right)+1)
		for j, r := range right {
			if l == r {
				curr[j+1] = prev[j] + 1
			} else if curr[j] > prev[j+1] {
				curr[j+1] = curr[j]
			} else {
				curr[j+1] = prev[j+1]
			}
		}
		prev = curr
	}
	return prev[len(right)]
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
