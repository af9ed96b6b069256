package ftindex

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	identifierTokenizerName = "cruxe_identifier_tokenizer"
	stopFilterName          = "cruxe_stop_filter"
	codeAnalyzerName        = "cruxe_code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(identifierTokenizerName, identifierTokenizerConstructor)
	_ = registry.RegisterTokenFilter(stopFilterName, stopFilterConstructor)
}

// buildMapping returns the field mapping for one document kind. Every
// kind indexes file_key and ref as untouched keyword terms (the delete
// targets) and runs free text through the code-aware analyzer.
func buildMapping(kind Kind) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(codeAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": identifierTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			stopFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("register code analyzer: %w", err)
	}
	im.DefaultAnalyzer = codeAnalyzerName

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("file_key", keywordField)
	doc.AddFieldMappingsAt("ref", keywordField)
	doc.AddFieldMappingsAt("project_id", keywordField)
	doc.AddFieldMappingsAt("path", keywordField)
	doc.AddFieldMappingsAt("language", keywordField)

	switch kind {
	case KindSymbols:
		doc.AddFieldMappingsAt("symbol_stable_id", keywordField)
		doc.AddFieldMappingsAt("kind", keywordField)
	case KindSnippets:
		doc.AddFieldMappingsAt("chunk_type", keywordField)
	case KindFiles:
	}

	im.DefaultMapping = doc
	return im, nil
}

func identifierTokenizerConstructor(_ map[string]any, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &identifierTokenizer{}, nil
}

type identifierTokenizer struct{}

func (identifierTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeIdentifier(text)
	stream := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	lowerText := strings.ToLower(text)
	for _, tok := range tokens {
		start := strings.Index(lowerText[offset:], tok)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(tok)
		stream = append(stream, &analysis.Token{
			Term:     []byte(tok),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return stream
}

func stopFilterConstructor(_ map[string]any, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &stopFilter{stopWords: BuildStopWordSet(DefaultStopWords)}, nil
}

type stopFilter struct {
	stopWords map[string]struct{}
}

func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, stop := f.stopWords[strings.ToLower(string(tok.Term))]; !stop {
			out = append(out, tok)
		}
	}
	return out
}
