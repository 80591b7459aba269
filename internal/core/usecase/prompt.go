package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lexhub/regrag/internal/core/domain"
)

// buildAnswerPrompt assembles the generation prompt: instructions, the
// retrieved provisions as numbered blocks headed by their citation form, then
// the question. The header format matches what the citation extractor parses
// back out of the answer.
func buildAnswerPrompt(question string, docs []domain.ContextDocument) string {
	var b strings.Builder
	b.WriteString("You are an assistant answering questions about legislation and regulations. ")
	b.WriteString("Answer using only the provisions below. ")
	b.WriteString("Cite every provision you rely on in the form [Document Title, Section N]. ")
	b.WriteString("If the provisions do not contain the answer, say you do not have enough information.\n\n")

	b.WriteString("Provisions:\n")
	for i, doc := range docs {
		header := doc.Title
		if doc.Section != "" {
			header = fmt.Sprintf("%s, Section %s", doc.Title, doc.Section)
		}
		fmt.Fprintf(&b, "%d. [%s]", i+1, header)
		if doc.Citation != "" {
			fmt.Fprintf(&b, " (%s)", doc.Citation)
		}
		b.WriteString("\n")
		b.WriteString(doc.Excerpt)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// buildContextDocuments trims ranked hits into the capped prompt context.
func buildContextDocuments(hits []domain.SearchHit, maxDocs, maxExcerptChars int) []domain.ContextDocument {
	if maxDocs <= 0 {
		maxDocs = 5
	}
	if maxExcerptChars <= 0 {
		maxExcerptChars = 2000
	}
	if len(hits) > maxDocs {
		hits = hits[:maxDocs]
	}

	docs := make([]domain.ContextDocument, 0, len(hits))
	for _, hit := range hits {
		excerpt := hit.Content
		if hit.Snippet != "" {
			excerpt = hit.Snippet
		}
		if len(excerpt) > maxExcerptChars {
			cut := maxExcerptChars
			for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
				cut--
			}
			excerpt = excerpt[:cut] + "…"
		}
		docs = append(docs, domain.ContextDocument{
			DocumentID: hit.DocumentID,
			Title:      hit.Title,
			Excerpt:    excerpt,
			Citation:   hit.Citation,
			Section:    hit.Section,
			Score:      hit.Score,
		})
	}
	return docs
}
