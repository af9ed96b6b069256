package mcpserver

import (
	"context"
	"strings"

	"github.com/signalridge/cruxe/internal/cerrors"
	"github.com/signalridge/cruxe/internal/relstore"
)

// GetCodeContextInput is get_code_context's validated arguments.
type GetCodeContextInput struct {
	SymbolStableID string
	Name           string
	Path           string
	Ref            string
	ContextLines   int // lines of file body to include before/after the symbol; 0 uses DefaultContextLines
}

// DefaultContextLines is how many lines of surrounding file body
// get_code_context includes on each side when the caller doesn't ask
// for a specific window.
const DefaultContextLines = 5

// GetCodeContextOutput is one symbol's body plus immediate surrounding
// lines drawn from the same file's other recorded symbols, so callers
// see what comes right before/after without a second file fetch.
type GetCodeContextOutput struct {
	Symbol      SymbolView `json:"symbol"`
	Content     string     `json:"content"`
	Before      string     `json:"before,omitempty"`
	After       string     `json:"after,omitempty"`
	ContextFrom int        `json:"context_from"`
	ContextTo   int        `json:"context_to"`
}

// GetCodeContext resolves a symbol and surrounds its recorded body with
// up to ContextLines of the neighboring symbols' bodies in the same
// file, ordered by position — a content-addressed alternative to
// reading from a live worktree, since a queried ref's worktree may not
// be checked out at query time.
func GetCodeContext(ctx context.Context, s *Stores, in GetCodeContextInput) (*GetCodeContextOutput, Metadata, error) {
	ref := s.ResolveRef(in.Ref)
	if err := s.requireIndexed(ctx, ref); err != nil {
		return nil, Metadata{}, err
	}

	sym, err := resolveSymbol(ctx, s, ref, in.SymbolStableID, in.Name, in.Path)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta, err := s.metadataFor(ctx, ref, "")
	if err != nil {
		return nil, Metadata{}, err
	}
	if sym == nil {
		return nil, meta, cerrors.New(cerrors.SymbolNotFound, "no symbol matched", nil)
	}

	siblings, err := relstore.ListSymbolsForFile(ctx, s.DB, s.ProjectID, ref, sym.Path)
	if err != nil {
		return nil, meta, err
	}

	contextLines := in.ContextLines
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}

	before, after, from, to := surroundingBodies(siblings, sym, contextLines)

	return &GetCodeContextOutput{
		Symbol:      toSymbolView(sym),
		Content:     sym.Content,
		Before:      before,
		After:       after,
		ContextFrom: from,
		ContextTo:   to,
	}, meta, nil
}

// surroundingBodies walks siblings (ordered by line_start) and collects
// the content of symbols immediately preceding and following target
// until contextLines worth of body lines have been gathered or the
// file's symbol list is exhausted.
func surroundingBodies(siblings []*relstore.Symbol, target *relstore.Symbol, contextLines int) (before, after string, from, to int) {
	idx := -1
	for i, sib := range siblings {
		if sib.SymbolStableID == target.SymbolStableID {
			idx = i
			break
		}
	}
	from, to = target.LineStart, target.LineEnd

	var beforeParts []string
	beforeBudget := contextLines
	for i := idx - 1; i >= 0 && beforeBudget > 0; i-- {
		lines := strings.Count(siblings[i].Content, "\n") + 1
		beforeParts = append([]string{siblings[i].Content}, beforeParts...)
		beforeBudget -= lines
		from = siblings[i].LineStart
	}
	before = strings.Join(beforeParts, "\n")

	var afterParts []string
	afterBudget := contextLines
	for i := idx + 1; i < len(siblings) && afterBudget > 0; i++ {
		lines := strings.Count(siblings[i].Content, "\n") + 1
		afterParts = append(afterParts, siblings[i].Content)
		afterBudget -= lines
		to = siblings[i].LineEnd
	}
	after = strings.Join(afterParts, "\n")

	return before, after, from, to
}
