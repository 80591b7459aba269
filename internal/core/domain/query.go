package domain

import "strings"

// QueryIntent is the classification produced by the upstream NLP component.
type QueryIntent string

const (
	IntentSearch         QueryIntent = "search"
	IntentEligibility    QueryIntent = "eligibility"
	IntentCompliance     QueryIntent = "compliance"
	IntentInterpretation QueryIntent = "interpretation"
	IntentProcedure      QueryIntent = "procedure"
	IntentDefinition     QueryIntent = "definition"
	IntentComparison     QueryIntent = "comparison"
	IntentStatistics     QueryIntent = "statistics"
	IntentRelationship   QueryIntent = "relationship"
	IntentUnknown        QueryIntent = "unknown"
)

// SearchFilters narrows retrieval to a slice of the corpus. Empty fields are
// not applied.
type SearchFilters struct {
	Jurisdiction string
	Program      string
	DocumentType string
	PersonType   string
	DateFrom     string
	DateTo       string
	Tags         []string
	Language     string
	Status       string
}

// IsZero reports whether no filter field is set.
func (f SearchFilters) IsZero() bool {
	return f.Jurisdiction == "" && f.Program == "" && f.DocumentType == "" &&
		f.PersonType == "" && f.DateFrom == "" && f.DateTo == "" &&
		len(f.Tags) == 0 && f.Language == "" && f.Status == ""
}

// LanguageOnly keeps only the language filter, used by the relaxed retrieval
// tier.
func (f SearchFilters) LanguageOnly() SearchFilters {
	return SearchFilters{Language: f.Language}
}

// ParsedQuery is the pre-analyzed question handed to retrieval. It is built by
// an external NLP component and treated as immutable here.
type ParsedQuery struct {
	Text             string
	Intent           QueryIntent
	IntentConfidence float64
	Filters          SearchFilters
	Keywords         []string
}

// FallbackParsedQuery builds a minimal ParsedQuery for callers that have no
// NLP component wired: whitespace-split keywords, unknown intent, zero
// confidence.
func FallbackParsedQuery(question string, filters SearchFilters) ParsedQuery {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(question)))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			keywords = append(keywords, strings.Trim(f, ".,?!:;\"'"))
		}
	}
	return ParsedQuery{
		Text:     strings.TrimSpace(question),
		Intent:   IntentUnknown,
		Filters:  filters,
		Keywords: keywords,
	}
}
