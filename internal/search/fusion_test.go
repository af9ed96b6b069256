package search

import (
	"testing"

	"github.com/signalridge/cruxe/internal/ftindex"
	"github.com/stretchr/testify/assert"
)

func TestFuseLexicalChannel_UnionsAcrossIndicesByMergeKey(t *testing.T) {
	hits := map[ftindex.Kind][]lexicalHit{
		ftindex.KindSymbols: {
			{symbolStableID: "s1", path: "a.go", name: "Foo"},
		},
		ftindex.KindSnippets: {
			{path: "a.go", lineStart: 10, lineEnd: 20},
			{symbolStableID: "s1", path: "a.go", name: "Foo"},
		},
	}

	fused := fuseLexicalChannel(hits, defaultRRFConstant)
	assert.Len(t, fused, 2)
	// symbol:s1 received contributions from both indices, so it outranks
	// the snippet-only candidate.
	assert.Equal(t, "symbol:s1", fused[0].mergeKey)
	assert.Greater(t, fused[0].lexicalScore, fused[1].lexicalScore)
}

func TestFuseLexicalChannel_FallsBackToPathLineKeyWithoutStableID(t *testing.T) {
	hits := map[ftindex.Kind][]lexicalHit{
		ftindex.KindFiles: {{path: "README.md"}},
	}
	fused := fuseLexicalChannel(hits, defaultRRFConstant)
	assert.Len(t, fused, 1)
	assert.Equal(t, "README.md:0:0", fused[0].mergeKey)
	assert.Equal(t, "file", fused[0].symbolKind)
}

func TestBlendChannels_TagsProvenanceHybridWhenBothChannelsMatch(t *testing.T) {
	shared := &candidate{mergeKey: "symbol:s1", symbolStableID: "s1"}
	lexicalOnly := &candidate{mergeKey: "symbol:s2", symbolStableID: "s2"}
	semanticOnly := &candidate{mergeKey: "symbol:s3", symbolStableID: "s3"}

	lexical := []*candidate{shared, lexicalOnly}
	semantic := []*candidate{shared, semanticOnly}

	blended := blendChannels(lexical, semantic, 0.4, defaultRRFConstant)

	byKey := map[string]*candidate{}
	for _, c := range blended {
		byKey[c.mergeKey] = c
	}

	assert.Equal(t, ProvenanceHybrid, byKey["symbol:s1"].provenance)
	assert.Equal(t, ProvenanceLexical, byKey["symbol:s2"].provenance)
	assert.Equal(t, ProvenanceSemantic, byKey["symbol:s3"].provenance)
}

func TestBlendChannels_HybridScoresHigherThanSingleChannelAtSameRank(t *testing.T) {
	shared := &candidate{mergeKey: "symbol:s1"}
	lexicalOnly := &candidate{mergeKey: "symbol:s2"}

	blended := blendChannels([]*candidate{shared, lexicalOnly}, []*candidate{shared}, 0.4, defaultRRFConstant)

	byKey := map[string]*candidate{}
	for _, c := range blended {
		byKey[c.mergeKey] = c
	}
	assert.Greater(t, byKey["symbol:s1"].blendedScore, byKey["symbol:s2"].blendedScore)
}
