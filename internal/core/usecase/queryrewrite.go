package usecase

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// SynonymDictionary expands colloquial terms into the legal vocabulary the
// corpus is written in, and holds the stop-word set stripped before graph
// search.
type SynonymDictionary struct {
	Synonyms  map[string][]string `yaml:"synonyms"`
	StopWords []string            `yaml:"stop_words"`

	stopSet map[string]struct{}
}

// DefaultSynonymDictionary is the built-in dictionary used when no YAML file
// is configured.
func DefaultSynonymDictionary() *SynonymDictionary {
	d := &SynonymDictionary{
		Synonyms: map[string][]string{
			"ei":         {"employment insurance"},
			"cpp":        {"canada pension plan"},
			"oas":        {"old age security"},
			"gst":        {"goods and services tax"},
			"hst":        {"harmonized sales tax"},
			"pension":    {"retirement benefit", "canada pension plan"},
			"fired":      {"terminated", "dismissal"},
			"laid":       {"terminated"},
			"work":       {"employment", "labour"},
			"job":        {"employment"},
			"maternity":  {"parental leave", "pregnancy"},
			"disability": {"disabled persons", "impairment"},
			"tax":        {"taxation", "income tax"},
			"benefits":   {"benefit entitlement"},
			"sick":       {"sickness benefit", "illness"},
			"retire":     {"retirement", "pension"},
			"immigrant":  {"permanent resident", "newcomer"},
			"landlord":   {"lessor", "tenancy"},
			"tenant":     {"lessee", "tenancy"},
		},
		StopWords: []string{
			"the", "a", "an", "is", "are", "was", "were", "be", "been",
			"what", "which", "how", "when", "where", "why", "who", "whom",
			"do", "does", "did", "can", "could", "will", "would", "should",
			"i", "my", "me", "we", "our", "you", "your", "they", "their",
			"to", "of", "in", "on", "for", "and", "or", "not", "no",
			"about", "with", "under", "it", "its", "this", "that", "there",
			"am", "get", "have", "has", "tell", "please",
		},
	}
	d.buildStopSet()
	return d
}

// LoadSynonymDictionary reads a dictionary from a YAML file. Missing sections
// fall back to the defaults.
func LoadSynonymDictionary(path string) (*SynonymDictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonym dictionary: %w", err)
	}
	var d SynonymDictionary
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse synonym dictionary: %w", err)
	}
	def := DefaultSynonymDictionary()
	if len(d.Synonyms) == 0 {
		d.Synonyms = def.Synonyms
	}
	if len(d.StopWords) == 0 {
		d.StopWords = def.StopWords
	}
	d.buildStopSet()
	return &d, nil
}

func (d *SynonymDictionary) buildStopSet() {
	d.stopSet = make(map[string]struct{}, len(d.StopWords))
	for _, w := range d.StopWords {
		d.stopSet[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
}

func (d *SynonymDictionary) isStopWord(term string) bool {
	_, ok := d.stopSet[term]
	return ok
}

// DeriveTerms normalizes a raw query into lowercase search terms: punctuation
// stripped, slash-joined terms split ("GST/HST" -> "gst", "hst"), stop words
// removed, duplicates dropped. Term order follows first appearance.
func (d *SynonymDictionary) DeriveTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/' && r != '\''
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	add := func(term string) {
		term = strings.Trim(term, "'")
		if term == "" || d.isStopWord(term) {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, f := range fields {
		if strings.Contains(f, "/") {
			for _, part := range strings.Split(f, "/") {
				add(part)
			}
			continue
		}
		add(f)
	}
	return terms
}

// Expand returns up to maxExpansions synonym phrases for the given terms, in
// deterministic order.
func (d *SynonymDictionary) Expand(terms []string, maxExpansions int) []string {
	if maxExpansions <= 0 {
		return nil
	}
	seen := make(map[string]struct{}, maxExpansions)
	out := make([]string, 0, maxExpansions)
	for _, term := range terms {
		expansions := d.Synonyms[term]
		for _, exp := range expansions {
			exp = strings.ToLower(strings.TrimSpace(exp))
			if exp == "" || exp == term {
				continue
			}
			if _, ok := seen[exp]; ok {
				continue
			}
			seen[exp] = struct{}{}
			out = append(out, exp)
			if len(out) >= maxExpansions {
				return out
			}
		}
	}
	return out
}

// ExpandQueryText appends bounded synonym expansions to the original query
// text, used by the relaxed retrieval tier.
func (d *SynonymDictionary) ExpandQueryText(query string, maxExpansions int) string {
	expansions := d.Expand(d.DeriveTerms(query), maxExpansions)
	if len(expansions) == 0 {
		return query
	}
	return query + " " + strings.Join(expansions, " ")
}

// BuildFulltextQuery assembles a Lucene-style OR query for the graph
// full-text indexes. Original terms are weighted above synonym expansions so
// exact vocabulary still dominates recall-oriented matching. Multi-word
// expansions are quoted.
func (d *SynonymDictionary) BuildFulltextQuery(query string, synonymWeight float64, maxExpansions int) string {
	terms := d.DeriveTerms(query)
	if len(terms) == 0 {
		return ""
	}
	expansions := d.Expand(terms, maxExpansions)

	clauses := make([]string, 0, len(terms)+len(expansions))
	for _, t := range terms {
		if synonymWeight > 1 {
			clauses = append(clauses, fmt.Sprintf("%s^%g", escapeLucene(t), synonymWeight))
		} else {
			clauses = append(clauses, escapeLucene(t))
		}
	}
	for _, e := range expansions {
		if strings.Contains(e, " ") {
			clauses = append(clauses, `"`+escapeLucene(e)+`"`)
		} else {
			clauses = append(clauses, escapeLucene(e))
		}
	}
	return strings.Join(clauses, " OR ")
}

func escapeLucene(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '+', '-', '&', '|', '!', '(', ')', '{', '}', '[', ']', '^', '"', '~', '*', '?', ':', '\\', '/':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
