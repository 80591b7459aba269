package usecase

import (
	"regexp"
	"strings"

	"github.com/lexhub/regrag/internal/core/domain"
)

// Citation confidences by pattern and resolution outcome.
const (
	bracketResolvedConfidence   = 0.9
	bracketUnresolvedConfidence = 0.5
	sectionResolvedConfidence   = 0.7
	sectionUnresolvedConfidence = 0.4
)

// Bracketed reference in the generated text, e.g.
// "[Employment Insurance Act, Section 7]".
var bracketCitationPattern = regexp.MustCompile(`\[([^\[\],]+),\s*[Ss]ection\s+([0-9][0-9A-Za-z.()]*)\]`)

// Bare "Section 7" mention outside brackets.
var bareSectionPattern = regexp.MustCompile(`\b[Ss]ection\s+([0-9][0-9A-Za-z.()]*)`)

// CitationExtractor pulls structured citations out of generated answer text
// and links them to the context documents the answer was built from.
type CitationExtractor struct{}

func NewCitationExtractor() *CitationExtractor { return &CitationExtractor{} }

// Extract finds bracketed title+section references first, then bare section
// mentions not already covered. Citations never point at documents outside
// the given context set; an unresolvable reference stays unlinked with a
// lower confidence.
func (e *CitationExtractor) Extract(answerText string, contextDocs []domain.ContextDocument) []domain.Citation {
	citations := make([]domain.Citation, 0, 4)
	seenSections := make(map[string]struct{})

	for _, m := range bracketCitationPattern.FindAllStringSubmatch(answerText, -1) {
		title := strings.TrimSpace(m[1])
		section := strings.TrimSpace(m[2])
		citation := domain.Citation{
			Text:       m[0],
			Section:    section,
			Confidence: bracketUnresolvedConfidence,
		}
		if doc, ok := matchByTitle(title, contextDocs); ok {
			citation.DocumentID = doc.DocumentID
			citation.DocumentTitle = doc.Title
			citation.Confidence = bracketResolvedConfidence
		}
		citations = append(citations, citation)
		seenSections[strings.ToLower(section)] = struct{}{}
	}

	for _, m := range bareSectionPattern.FindAllStringSubmatch(answerText, -1) {
		section := strings.TrimSpace(m[1])
		if _, ok := seenSections[strings.ToLower(section)]; ok {
			continue
		}
		seenSections[strings.ToLower(section)] = struct{}{}

		citation := domain.Citation{
			Text:       "Section " + section,
			Section:    section,
			Confidence: sectionUnresolvedConfidence,
		}
		if doc, ok := matchBySection(section, contextDocs); ok {
			citation.DocumentID = doc.DocumentID
			citation.DocumentTitle = doc.Title
			citation.Confidence = sectionResolvedConfidence
		}
		citations = append(citations, citation)
	}

	return citations
}

// matchByTitle resolves a cited title against the context set by
// case-insensitive substring match, in either direction: generated text often
// shortens or slightly extends the stored title.
func matchByTitle(title string, docs []domain.ContextDocument) (domain.ContextDocument, bool) {
	cited := strings.ToLower(title)
	if cited == "" {
		return domain.ContextDocument{}, false
	}
	for _, doc := range docs {
		stored := strings.ToLower(doc.Title)
		if stored == "" {
			continue
		}
		if strings.Contains(stored, cited) || strings.Contains(cited, stored) {
			return doc, true
		}
	}
	return domain.ContextDocument{}, false
}

func matchBySection(section string, docs []domain.ContextDocument) (domain.ContextDocument, bool) {
	for _, doc := range docs {
		if doc.Section != "" && strings.EqualFold(doc.Section, section) {
			return doc, true
		}
	}
	return domain.ContextDocument{}, false
}
