package paperid

import (
	"testing"

	"github.com/google/uuid"

	"github.com/hyperjump/papersim/internal/models"
)

func TestFor(t *testing.T) {
	tests := []struct {
		name string
		a, b models.PaperInput
		same bool
	}{
		{
			name: "explicit id wins",
			a:    models.PaperInput{ID: "p1", URL: "https://a"},
			b:    models.PaperInput{ID: "p1", URL: "https://b"},
			same: true,
		},
		{
			name: "same url",
			a:    models.PaperInput{URL: "https://aclanthology.org/1", Title: "A"},
			b:    models.PaperInput{URL: " https://aclanthology.org/1 ", Title: "B"},
			same: true,
		},
		{
			name: "different url",
			a:    models.PaperInput{URL: "https://aclanthology.org/1"},
			b:    models.PaperInput{URL: "https://aclanthology.org/2"},
		},
		{
			name: "title and year normalised",
			a:    models.PaperInput{Title: "Attention Is  All You Need", Year: 2017},
			b:    models.PaperInput{Title: "attention is all you need\n", Year: 2017},
			same: true,
		},
		{
			name: "year distinguishes",
			a:    models.PaperInput{Title: "Survey", Year: 2020},
			b:    models.PaperInput{Title: "Survey", Year: 2021},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := For(&tt.a), For(&tt.b)
			if (a == b) != tt.same {
				t.Errorf("For(a)=%s For(b)=%s, same=%v", a, b, tt.same)
			}
		})
	}
}

func TestDerivedIDsAreUUIDs(t *testing.T) {
	for _, id := range []string{FromURL("u"), FromTitleYear("t", 1), FromFile("/x/y.pdf")} {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("%q is not a uuid: %v", id, err)
		}
	}
	if FromFile("/x/./y.pdf") != FromFile("/x/y.pdf") {
		t.Error("file paths should be cleaned")
	}
	if FromURL("x") == FromFile("x") {
		t.Error("url and file IDs must not collide")
	}
}
