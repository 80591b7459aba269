package usecase

import (
	"math"
	"strings"

	"github.com/lexhub/regrag/internal/core/domain"
)

// Fixed sub-score weights of the confidence formula.
const (
	citationWeight       = 0.35
	answerQualityWeight  = 0.25
	contextQualityWeight = 0.25
	intentWeight         = 0.15
)

var uncertaintyPhrases = []string{
	"i don't know",
	"i do not know",
	"unclear",
	"not enough information",
	"insufficient information",
	"cannot determine",
	"unable to answer",
	"no relevant information",
}

// ConfidenceScorer combines retrieval and generation signals into one
// reproducible [0,1] score. Pure function of its inputs; identical inputs
// always produce the identical score.
type ConfidenceScorer struct{}

func NewConfidenceScorer() *ConfidenceScorer { return &ConfidenceScorer{} }

func (s *ConfidenceScorer) Score(
	answerText string,
	citations []domain.Citation,
	contextDocs []domain.ContextDocument,
	intentConfidence float64,
) float64 {
	score := citationWeight*citationScore(citations) +
		answerQualityWeight*answerQualityScore(answerText) +
		contextQualityWeight*contextQualityScore(contextDocs) +
		intentWeight*clamp01(intentConfidence)

	return math.Round(clamp01(score)*1000) / 1000
}

// citationScore floors at 0.2 with no citations; otherwise grows with count
// and is scaled by the average citation confidence.
func citationScore(citations []domain.Citation) float64 {
	if len(citations) == 0 {
		return 0.2
	}
	countScore := math.Min(0.3+0.15*float64(len(citations)), 1.0)
	sum := 0.0
	for _, c := range citations {
		sum += c.Confidence
	}
	return countScore * (sum / float64(len(citations)))
}

func answerQualityScore(answerText string) float64 {
	words := len(strings.Fields(answerText))
	score := 0.8
	switch {
	case words < 10:
		score = 0.3
	case words > 500:
		score = 0.6
	}

	lower := strings.ToLower(answerText)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			return score * 0.5
		}
	}
	return score
}

// contextQualityScore averages the retrieval scores of the context documents,
// normalized against a nominal full-relevance score of 2.0.
func contextQualityScore(contextDocs []domain.ContextDocument) float64 {
	if len(contextDocs) == 0 {
		return 0
	}
	sum := 0.0
	for _, doc := range contextDocs {
		sum += doc.Score
	}
	avg := sum / float64(len(contextDocs))
	return math.Min(avg/2.0, 1.0)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
