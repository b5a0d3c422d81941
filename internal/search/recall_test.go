package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/papersim/internal/models"
)

// recallCorpus builds n papers that share vocabulary but each carry a
// distinct signature phrase.
func recallCorpus(n int) []*models.Paper {
	topics := []string{"graph", "protein", "language", "vision", "robotics", "quantum", "climate"}
	papers := make([]*models.Paper, n)
	for i := range papers {
		topic := topics[i%len(topics)]
		papers[i] = &models.Paper{
			ID:       fmt.Sprintf("paper-%03d", i),
			Title:    fmt.Sprintf("Learning %s representations sig%03da", topic, i),
			Abstract: fmt.Sprintf("We study %s models with method sig%03db and report results", topic, i),
			Year:     2000 + i%25,
		}
	}
	return papers
}

func TestSearch_recallOnCorpus(t *testing.T) {
	for _, keyword := range []bool{false, true} {
		t.Run(fmt.Sprintf("keyword=%v", keyword), func(t *testing.T) {
			f := newFixture(t, nil)
			papers := recallCorpus(60)
			f.add(t, papers...)
			for _, p := range papers {
				resp, err := f.engine.Search(context.Background(), &models.SearchQuery{
					Title: p.Title, Abstract: p.Abstract, Limit: 3, KeywordEnabled: keyword,
				})
				if err != nil {
					t.Fatal(err)
				}
				if len(resp.Results) != 3 {
					t.Fatalf("%s: got %d results", p.ID, len(resp.Results))
				}
				if got := resp.Results[0].Paper.ID; got != p.ID {
					t.Errorf("query %s: top result %s", p.ID, got)
				}
			}
		})
	}
}
