package search

import (
	"sort"

	"github.com/signalridge/cruxe/internal/ftindex"
)

// defaultRRFConstant is the RRF smoothing constant k shared by both
// fusion stages (the per-index union and the lexical/semantic blend)
// when EngineConfig.RRFConstant isn't set to something else.
const defaultRRFConstant = 60

// lexicalIndexWeight is the per-index weight the first-stage RRF union
// assigns when combining symbols/snippets/files hits into one lexical
// channel; symbol matches are the most precise signal, so they're
// weighted highest.
var lexicalIndexWeight = map[ftindex.Kind]float64{
	ftindex.KindSymbols:  1.0,
	ftindex.KindSnippets: 0.7,
	ftindex.KindFiles:    0.4,
}

// candidate is a result flowing through the merge pipeline: lexical
// union, semantic branch, channel blend, overlay merge, rerank.
type candidate struct {
	mergeKey       string
	path           string
	lineStart      int
	lineEnd        int
	symbolStableID string
	name           string
	qualifiedName  string
	symbolKind     string // relstore.SymbolKind string, or "snippet"/"file"
	language       string
	content        string
	sourceLayer    SourceLayer

	lexicalScore  float64
	lexicalRank   int // 1-indexed, 0 if absent from the lexical channel
	semanticScore float64
	semanticRank  int // 1-indexed, 0 if absent from the semantic channel

	blendedScore float64
	provenance   Provenance
}

func mergeKeyFor(h lexicalHit) string {
	if h.symbolStableID != "" {
		return "symbol:" + h.symbolStableID
	}
	return fmt3(h.path, h.lineStart, h.lineEnd)
}

func fmt3(path string, start, end int) string {
	return path + ":" + itoa(start) + ":" + itoa(end)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// fuseLexicalChannel unions hits from the three full-text indices into
// one ranked candidate list via per-index-weighted RRF (spec.md §4.5
// step 3): each index contributes weight/(k+rank) to a shared
// accumulator keyed by merge key, then the accumulator is sorted desc.
func fuseLexicalChannel(hitsByKind map[ftindex.Kind][]lexicalHit, rrfConstant int) []*candidate {
	byKey := map[string]*candidate{}

	for kind, hits := range hitsByKind {
		weight := lexicalIndexWeight[kind]
		for rank, h := range hits {
			key := mergeKeyFor(h)
			c, ok := byKey[key]
			if !ok {
				c = &candidate{
					mergeKey:       key,
					path:           h.path,
					lineStart:      h.lineStart,
					lineEnd:        h.lineEnd,
					symbolStableID: h.symbolStableID,
					name:           h.name,
					qualifiedName:  h.qualifiedName,
					symbolKind:     symbolKindLabel(kind, h.symbolKind),
					language:       h.language,
					content:        h.content,
					sourceLayer:    SourceLayerBase,
				}
				byKey[key] = c
			}
			contribution := weight / float64(rrfConstant+rank+1)
			c.lexicalScore += contribution
			if c.lexicalRank == 0 || rank+1 < c.lexicalRank {
				c.lexicalRank = rank + 1
			}
		}
	}

	return sortedByLexicalScore(byKey)
}

func symbolKindLabel(kind ftindex.Kind, symbolKind string) string {
	switch kind {
	case ftindex.KindSymbols:
		return symbolKind
	case ftindex.KindSnippets:
		return "snippet"
	default:
		return "file"
	}
}

func sortedByLexicalScore(byKey map[string]*candidate) []*candidate {
	out := make([]*candidate, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].lexicalScore != out[j].lexicalScore {
			return out[i].lexicalScore > out[j].lexicalScore
		}
		return out[i].mergeKey < out[j].mergeKey
	})
	return out
}

// blendChannels runs the second-stage RRF across the lexical and
// semantic channels (spec.md §4.5 step 5), merging by mergeKey and
// tagging provenance as lexical, semantic, or hybrid.
func blendChannels(lexical, semantic []*candidate, semanticRatio float64, rrfConstant int) []*candidate {
	lexicalWeight := 1 - semanticRatio
	byKey := map[string]*candidate{}
	order := make([]string, 0, len(lexical)+len(semantic))

	for rank, c := range lexical {
		merged := cloneCandidate(c)
		merged.blendedScore = lexicalWeight / float64(rrfConstant+rank+1)
		merged.provenance = ProvenanceLexical
		byKey[c.mergeKey] = merged
		order = append(order, c.mergeKey)
	}

	for rank, c := range semantic {
		contribution := semanticRatio / float64(rrfConstant+rank+1)
		if existing, ok := byKey[c.mergeKey]; ok {
			existing.blendedScore += contribution
			existing.provenance = ProvenanceHybrid
			existing.semanticScore = c.semanticScore
			existing.semanticRank = rank + 1
			continue
		}
		merged := cloneCandidate(c)
		merged.blendedScore = contribution
		merged.provenance = ProvenanceSemantic
		merged.semanticScore = c.semanticScore
		merged.semanticRank = rank + 1
		byKey[c.mergeKey] = merged
		order = append(order, c.mergeKey)
	}

	out := make([]*candidate, 0, len(order))
	seen := map[string]bool{}
	for _, key := range order {
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, byKey[key])
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].blendedScore != out[j].blendedScore {
			return out[i].blendedScore > out[j].blendedScore
		}
		return out[i].mergeKey < out[j].mergeKey
	})
	return out
}

func cloneCandidate(c *candidate) *candidate {
	cp := *c
	return &cp
}
