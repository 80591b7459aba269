package usecase

// Boosts are the resolved score-adjustment constants applied on top of raw
// retrieval scores. The defaults were tuned empirically against the
// production corpus.
// TODO: revisit TitleBoost once the index carries per-field BM25 weights.
type Boosts struct {
	// TitleBoost is added when a detected act name appears in the candidate
	// title or legislation name.
	TitleBoost float64
	// ActPreferenceBoost is added to act/regulation-level candidates when the
	// query asks for an overview of a named act.
	ActPreferenceBoost float64
	// SectionPreferenceBoost is added to section-level candidates when the
	// query targets a specific clause.
	SectionPreferenceBoost float64
	// ActPenalty is added (negative) to act-level candidates for clause-level
	// questions.
	ActPenalty float64
	// HighlightMultiplier scales graph full-text hits that produced a
	// snippet.
	HighlightMultiplier float64
	// SynonymWeight is the Lucene boost keeping original query terms ahead of
	// synonym expansions in graph full-text queries.
	SynonymWeight float64
}

func DefaultBoosts() Boosts {
	return Boosts{
		TitleBoost:             10.0,
		ActPreferenceBoost:     5.0,
		SectionPreferenceBoost: 8.0,
		ActPenalty:             -3.0,
		HighlightMultiplier:    1.2,
		SynonymWeight:          10.0,
	}
}

// BoostConfig overrides individual boost constants. A nil field keeps its
// default; a set field is taken verbatim, so an explicit zero disables that
// boost.
type BoostConfig struct {
	TitleBoost             *float64
	ActPreferenceBoost     *float64
	SectionPreferenceBoost *float64
	ActPenalty             *float64
	HighlightMultiplier    *float64
	SynonymWeight          *float64
}

func (c BoostConfig) resolve() Boosts {
	b := DefaultBoosts()
	if c.TitleBoost != nil {
		b.TitleBoost = *c.TitleBoost
	}
	if c.ActPreferenceBoost != nil {
		b.ActPreferenceBoost = *c.ActPreferenceBoost
	}
	if c.SectionPreferenceBoost != nil {
		b.SectionPreferenceBoost = *c.SectionPreferenceBoost
	}
	if c.ActPenalty != nil {
		b.ActPenalty = *c.ActPenalty
	}
	// Multiplicative and Lucene weights stay positive; "disabled" for them is
	// the identity value, not zero.
	if c.HighlightMultiplier != nil && *c.HighlightMultiplier > 0 {
		b.HighlightMultiplier = *c.HighlightMultiplier
	}
	if c.SynonymWeight != nil && *c.SynonymWeight > 0 {
		b.SynonymWeight = *c.SynonymWeight
	}
	return b
}
