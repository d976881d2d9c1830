package pattern

import (
	"context"
	"path/filepath"
	"testing"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/internal/storage"
)

func literal(letters ...string) []Position {
	var out []Position
	for _, l := range letters {
		out = append(out, Position{Letter: l})
	}
	return out
}

// TestAnchoring checks that a two-letter template without attachment
// flags does not match inside a longer word.
func TestAnchoring(t *testing.T) {
	text := "سبر" // contains the substring but not at a boundary

	anchored, err := Compile(Template{Positions: literal("ب", "ر")})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := anchored.Count(text); got != 0 {
		t.Errorf("anchored count = %d, want 0", got)
	}

	loose, err := Compile(Template{
		Positions:   literal("ب", "ر"),
		AllowPrefix: true,
		AllowSuffix: true,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := loose.Count(text); got != 1 {
		t.Errorf("loose count = %d, want 1", got)
	}
}

func TestWordBoundaryMatch(t *testing.T) {
	m, err := Compile(Template{Positions: literal("ب", "ر")})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	tests := []struct {
		text string
		want int
	}{
		{"بر", 1},
		{"بر بر", 2},
		{"ابر", 0},
		{"بار", 0},
		{"قال بر قال", 1},
	}
	for _, tt := range tests {
		if got := m.Count(tt.text); got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

// TestDiacriticConstraint checks that a named diacritic is required
// while extra combining marks stay tolerated.
func TestDiacriticConstraint(t *testing.T) {
	m, err := Compile(Template{
		Positions: []Position{
			{Letter: "ب", Diacritics: []string{"َ"}}, // fatha
			{Letter: "ر"},
		},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := m.Count("بَر"); got != 1 {
		t.Errorf("fatha text: count = %d, want 1", got)
	}
	if got := m.Count("بِر"); got != 0 { // kasra instead
		t.Errorf("kasra text: count = %d, want 0", got)
	}
	if got := m.Count("بَّر"); got != 1 { // shadda on top of fatha
		t.Errorf("extra mark text: count = %d, want 1", got)
	}
}

func TestAnyLetterAndTatweel(t *testing.T) {
	m, err := Compile(Template{
		Positions: []Position{
			{AnyLetter: true, AnyDiacritics: true},
			{Letter: "ر"},
		},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, text := range []string{"بر", "سر", "بـر"} {
		if got := m.Count(text); got != 1 {
			t.Errorf("Count(%q) = %d, want 1", text, got)
		}
	}
	if got := m.Count("ر"); got != 0 {
		t.Errorf("single letter matched a two-position template")
	}
}

func TestCompileEmptyTemplate(t *testing.T) {
	_, err := Compile(Template{})
	if !kerr.IsInvalid(err) {
		t.Errorf("got %v, want invalid error", err)
	}
}

// TestSearchVerses checks ranking by per-verse occurrence count.
func TestSearchVerses(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.SetVerseText(ctx, 1, 1, "بر"); err != nil {
		t.Fatalf("SetVerseText: %v", err)
	}
	if err := store.SetVerseText(ctx, 1, 2, "بر ثم بر"); err != nil {
		t.Fatalf("SetVerseText: %v", err)
	}
	if err := store.SetVerseText(ctx, 1, 3, "قال"); err != nil {
		t.Fatalf("SetVerseText: %v", err)
	}

	matches, total, err := SearchVerses(ctx, store, Template{Positions: literal("ب", "ر")}, 10)
	if err != nil {
		t.Fatalf("SearchVerses: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Ref != "1:2" || matches[0].Count != 2 {
		t.Errorf("top match = %+v, want 1:2 with count 2", matches[0])
	}
	if matches[1].Ref != "1:1" {
		t.Errorf("second match = %+v, want 1:1", matches[1])
	}
}
