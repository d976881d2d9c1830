// Package analysis reconstructs one flat, deduplicated token analysis
// for a verse from up to three imperfect sources: morphology segments,
// dependency edges, and the verse's own raw tokens.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/core/model"
	"github.com/kalimaproject/kalima/internal/storage"
)

// Token is one consolidated analysis entry for display.
type Token struct {
	Text string `json:"text"`
	Root string `json:"root,omitempty"`
	POS  string `json:"pos,omitempty"`
	Form string `json:"form,omitempty"`
}

// Edge is a dependency relation attached to a word.
type Edge struct {
	Relation string `json:"relation"`
	Word     string `json:"word"`
	POS      string `json:"pos,omitempty"`
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Consolidate merges morphology, dependency edges, and raw verse tokens
// into one flat token list. Morphology is authoritative when present;
// raw tokens and the verse text itself only fill gaps.
func Consolidate(verse *model.Verse, morphology []storage.VerseSegment, deps []Edge) []Token {
	var tokens []Token
	emitted := map[string]bool{}

	for _, seg := range morphology {
		label := seg.Form
		if seg.Type != "" {
			label = fmt.Sprintf("%s (%s)", label, seg.Type)
		}
		pos := seg.POS
		if seg.DependencyRel != "" {
			if pos != "" {
				pos = fmt.Sprintf("%s | dep: %s", pos, seg.DependencyRel)
			} else {
				pos = "dep: " + seg.DependencyRel
			}
		}
		form := seg.Form
		if form == "" {
			form = seg.POS
		}
		tokens = append(tokens, Token{Text: label, Root: seg.Root, POS: pos, Form: form})
		emitted[norm(seg.Form)] = true
		emitted[norm(seg.TokenText)] = true
	}

	// Raw tokens and the verse text fill whatever morphology left
	// uncovered; the emitted set keeps covered surfaces from repeating.
	if verse != nil {
		for _, tok := range verse.Tokens {
			if emitted[norm(tok.Text)] {
				continue
			}
			skip := false
			for _, seg := range tok.Segments {
				if emitted[norm(seg.Form)] {
					skip = true
					break
				}
			}
			if skip {
				continue
			}

			switch {
			case len(tok.Segments) == 0 && strings.ContainsAny(tok.Text, " \t"):
				// An unsplit multi-word span: one entry per word.
				for _, word := range strings.Fields(tok.Text) {
					tokens = append(tokens, Token{Text: word, Form: word})
					emitted[norm(word)] = true
				}
			case len(tok.Segments) == 0:
				tokens = append(tokens, Token{Text: tok.Text, Form: tok.Text})
				emitted[norm(tok.Text)] = true
			default:
				for _, seg := range tok.Segments {
					label := tok.Text
					if seg.POS != "" {
						label = fmt.Sprintf("%s (%s)", label, seg.POS)
					}
					tokens = append(tokens, Token{Text: label, Root: seg.Root, POS: seg.POS, Form: tok.Text})
				}
				emitted[norm(tok.Text)] = true
			}
		}

		// Repair pass: every word of the verse text must be covered
		// even when all sources are partial.
		for _, word := range strings.Fields(verse.Text) {
			if emitted[norm(word)] {
				continue
			}
			tokens = append(tokens, Token{Text: word, Form: word})
			emitted[norm(word)] = true
		}
	}

	for _, dep := range deps {
		rel := dep.Relation
		if rel == "" {
			rel = "dep"
		}
		tokens = append(tokens, Token{
			Text: fmt.Sprintf("%s -> %s", rel, dep.Word),
			POS:  dep.POS,
		})
	}

	return consolidate(tokens)
}

// consolidate merges entries sharing a lowercased display text: first
// non-empty value wins per attribute, first-arrival order kept.
func consolidate(tokens []Token) []Token {
	var out []Token
	at := map[string]int{}
	for _, tok := range tokens {
		key := norm(tok.Text)
		i, ok := at[key]
		if !ok {
			at[key] = len(out)
			out = append(out, tok)
			continue
		}
		if out[i].Root == "" {
			out[i].Root = tok.Root
		}
		if out[i].POS == "" {
			out[i].POS = tok.POS
		}
		if out[i].Form == "" {
			out[i].Form = tok.Form
		}
	}
	return out
}

// CheckComplete verifies the morphology covers every word position of
// the verse before a deep view presents it as a complete analysis.
// Word indices are normalized first: a 0-based source shifts up by one.
func CheckComplete(verse *model.Verse, morphology []storage.VerseSegment) error {
	if len(morphology) == 0 {
		return kerr.Invalidf("analysis", "no morphology for %s", verse.Ref())
	}

	declared := false
	for _, seg := range morphology {
		if seg.WordIndex > 0 {
			declared = true
			break
		}
	}
	indices := make([]int, 0, len(morphology))
	minIdx := -1
	for _, seg := range morphology {
		idx := seg.WordIndex
		if !declared {
			idx = seg.TokenIndex + 1
		}
		indices = append(indices, idx)
		if minIdx < 0 || idx < minIdx {
			minIdx = idx
		}
	}

	covered := map[int]bool{}
	maxIdx := 0
	for _, idx := range indices {
		// A source whose smallest declared index is 0 counts from 0.
		if minIdx == 0 {
			idx++
		}
		covered[idx] = true
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	span := len(verse.Tokens)
	if maxIdx > span {
		span = maxIdx
	}
	var missing []int
	for pos := 1; pos <= span; pos++ {
		if !covered[pos] {
			missing = append(missing, pos)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		names := make([]string, len(missing))
		for i, pos := range missing {
			names[i] = fmt.Sprintf("%d", pos)
		}
		return kerr.Invalidf("analysis",
			"incomplete morphology for %s: missing position(s) %s",
			verse.Ref(), strings.Join(names, ", "))
	}
	return nil
}

// DependencyEdges extracts the dependency dimension of a verse's
// morphology: one edge per segment declaring a relation.
func DependencyEdges(morphology []storage.VerseSegment) []Edge {
	var edges []Edge
	for _, seg := range morphology {
		if seg.DependencyRel == "" {
			continue
		}
		word := seg.TokenText
		if word == "" {
			word = seg.Form
		}
		edges = append(edges, Edge{Relation: seg.DependencyRel, Word: word, POS: seg.POS})
	}
	return edges
}

// Pronoun is one pronoun-bearing token or segment found in a verse.
type Pronoun struct {
	PronounID   string `json:"pronoun_id"`
	TokenID     string `json:"token_id"`
	SegmentID   string `json:"segment_id,omitempty"`
	Form        string `json:"form"`
	POS         string `json:"pos,omitempty"`
	Features    string `json:"features,omitempty"`
	TokenForm   string `json:"token_form"`
	SegmentType string `json:"segment_type,omitempty"`
}

// DetectPronouns lists the pronoun segments of a hydrated verse, both
// standalone pronouns and clitic morphemes.
func DetectPronouns(verse *model.Verse) []Pronoun {
	if verse == nil {
		return nil
	}
	var out []Pronoun
	for _, tok := range verse.Tokens {
		for _, seg := range tok.Segments {
			isPronoun := strings.EqualFold(seg.POS, "PRON") ||
				strings.Contains(strings.ToLower(seg.Features), "pron")
			if !isPronoun {
				continue
			}
			form := seg.Form
			if form == "" {
				form = tok.Text
			}
			out = append(out, Pronoun{
				PronounID:   tok.ID + ":" + seg.ID,
				TokenID:     tok.ID,
				SegmentID:   seg.ID,
				Form:        form,
				POS:         seg.POS,
				Features:    seg.Features,
				TokenForm:   tok.Text,
				SegmentType: seg.Type,
			})
		}
	}
	return out
}
