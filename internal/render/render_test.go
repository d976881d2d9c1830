package render

import (
	"strings"
	"testing"

	"github.com/kalimaproject/kalima/core/model"
	"github.com/kalimaproject/kalima/internal/storage"
)

func seg(word int, typ, form, pos string) storage.VerseSegment {
	return storage.VerseSegment{
		Segment: model.Segment{
			Type:      typ,
			Form:      form,
			POS:       pos,
			WordIndex: word,
		},
	}
}

// TestTreeWordAlignment checks that a four-word verse with declared
// word indices renders Word lines in order, each followed by its
// prefix and stem in arrival order.
func TestTreeWordAlignment(t *testing.T) {
	verse := model.Verse{Surah: model.SurahInfo{Number: 1}, Ayah: 2, Text: "alpha beta gamma delta"}
	var segments []storage.VerseSegment
	for i := 1; i <= 4; i++ {
		segments = append(segments,
			seg(i, "prefix", "p", "P"),
			seg(i, "stem", "s", "N"),
		)
	}

	out := Tree(verse, segments)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	var order []string
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " |`-")
		switch {
		case strings.HasPrefix(trimmed, "Word "):
			order = append(order, trimmed[:6])
		case strings.HasPrefix(trimmed, "Prefix"):
			order = append(order, "Prefix")
		case strings.HasPrefix(trimmed, "Stem"):
			order = append(order, "Stem")
		}
	}

	want := []string{
		"Word 1", "Prefix", "Stem",
		"Word 2", "Prefix", "Stem",
		"Word 3", "Prefix", "Stem",
		"Word 4", "Prefix", "Stem",
	}
	if len(order) != len(want) {
		t.Fatalf("got %d structural lines, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, order[i], want[i])
		}
	}
	if !strings.Contains(out, "Word 2: beta") {
		t.Errorf("word line missing verse text:\n%s", out)
	}
}

// TestTreeCursorAdvance checks that segments without a declared word
// index land on the cursor position, which moves past each stem.
func TestTreeCursorAdvance(t *testing.T) {
	verse := model.Verse{Surah: model.SurahInfo{Number: 1}, Ayah: 1, Text: "one two"}
	segments := []storage.VerseSegment{
		seg(0, "prefix", "bi", "P"),
		seg(0, "stem", "somi", "N"),
		seg(0, "stem", "allah", "PN"),
	}

	root := BuildTree(verse, segments)
	phrase := root.Children[0]
	if len(phrase.Children) != 2 {
		t.Fatalf("got %d words, want 2", len(phrase.Children))
	}
	word1, word2 := phrase.Children[0], phrase.Children[1]
	if len(word1.Children) != 2 {
		t.Errorf("word 1: got %d segments, want 2", len(word1.Children))
	}
	if len(word2.Children) != 1 {
		t.Errorf("word 2: got %d segments, want 1", len(word2.Children))
	}
}

// TestTreeClampsOutOfRangeIndex checks that a declared index past the
// verse's words is clamped to the last word.
func TestTreeClampsOutOfRangeIndex(t *testing.T) {
	verse := model.Verse{Surah: model.SurahInfo{Number: 1}, Ayah: 1, Text: "solo"}
	segments := []storage.VerseSegment{seg(9, "stem", "x", "N")}

	root := BuildTree(verse, segments)
	phrase := root.Children[0]
	if len(phrase.Children) != 9 {
		// Span extends to the declared index when it exceeds the
		// text, so the word list covers all nine positions.
		t.Fatalf("got %d words, want 9", len(phrase.Children))
	}
	if len(phrase.Children[8].Children) != 1 {
		t.Errorf("segment not placed on word 9")
	}
}

func TestTreeDetailLines(t *testing.T) {
	verse := model.Verse{Surah: model.SurahInfo{Number: 1}, Ayah: 1, Text: "word"}
	s := seg(1, "stem", "form", "PN")
	s.Role = "subject"
	s.Case = "genitive"
	s.Root = "سمو"
	s.Features = "invar:Declinable | poss:construct"
	out := Tree(verse, []storage.VerseSegment{s})

	for _, want := range []string{
		"Proper Noun",
		"Role: subject",
		"Case: genitive",
		"Inflection: Declinable",
		"State: construct",
		"Root: سمو",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPhraseLabel(t *testing.T) {
	verse := model.Verse{Surah: model.SurahInfo{Number: 1}, Ayah: 1, Text: "word"}
	s := seg(1, "stem", "form", "N")
	s.Features = "phrase:PP | phrase_fn:jarr"
	out := Tree(verse, []storage.VerseSegment{s})
	if !strings.Contains(out, "Prepositional Phrase (Genitive Construction)") {
		t.Errorf("phrase label not glossed:\n%s", out)
	}

	s.Features = ""
	out = Tree(verse, []storage.VerseSegment{s})
	if !strings.Contains(out, "Phrase") {
		t.Errorf("missing default phrase node:\n%s", out)
	}
}

func TestPOSLongName(t *testing.T) {
	tests := []struct {
		pos  string
		want string
	}{
		{"N", "Noun"},
		{"pn", "Proper Noun"},
		{"RSLT", "Result Particle"},
		{"XYZ", "Xyz"},
		{"custom tag", "Custom Tag"},
	}
	for _, tt := range tests {
		if got := POSLongName(tt.pos); got != tt.want {
			t.Errorf("POSLongName(%q) = %q, want %q", tt.pos, got, tt.want)
		}
	}
}
