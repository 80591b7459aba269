package neo4jgraph

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lexhub/regrag/internal/core/domain"
)

func TestMapNode(t *testing.T) {
	node := neo4j.Node{
		ElementId: "4:abc:17",
		Labels:    []string{"Act"},
		Props: map[string]any{
			"id":            "act-esa",
			"title":         "Employment Standards Act",
			"body":          "An Act respecting minimum employment standards.",
			"citation":      "RSO 2000, c 41",
			"document_type": "act",
			"jurisdiction":  "provincial",
		},
	}

	got := mapNode(node, domain.CategoryAct)

	if got.ID != "act-esa" {
		t.Fatalf("id=%q, want property id over element id", got.ID)
	}
	if got.Title != "Employment Standards Act" || got.Category != domain.CategoryAct {
		t.Fatalf("mapped node wrong: %+v", got)
	}
	if got.Jurisdiction != "provincial" {
		t.Fatalf("jurisdiction=%q", got.Jurisdiction)
	}
}

func TestMapNodeFallsBackToElementID(t *testing.T) {
	node := neo4j.Node{
		ElementId: "4:abc:99",
		Props:     map[string]any{"title": "Untracked Section"},
	}
	if got := mapNode(node, domain.CategorySection); got.ID != "4:abc:99" {
		t.Fatalf("id=%q, want element id fallback", got.ID)
	}
}

func TestCategoryFromLabels(t *testing.T) {
	cases := []struct {
		labels []string
		want   domain.NodeCategory
	}{
		{[]string{"Act"}, domain.CategoryAct},
		{[]string{"Document", "Regulation"}, domain.CategoryRegulation},
		{[]string{"Section"}, domain.CategorySection},
		{[]string{"Unknown"}, domain.CategorySection},
		{nil, domain.CategorySection},
	}
	for _, tc := range cases {
		if got := categoryFromLabels(tc.labels); got != tc.want {
			t.Errorf("categoryFromLabels(%v)=%q, want %q", tc.labels, got, tc.want)
		}
	}
}

func TestToFloatHandlesIntegerScores(t *testing.T) {
	if toFloat(int64(3)) != 3.0 {
		t.Fatal("int64 depth not converted")
	}
	if toFloat(2.5) != 2.5 {
		t.Fatal("float64 score not passed through")
	}
	if toFloat("not a number") != 0 {
		t.Fatal("unexpected type should map to zero")
	}
}
