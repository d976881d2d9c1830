// Package pattern compiles diacritic-aware Arabic letter templates
// into regular expressions and runs them over stored verse text.
package pattern

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/internal/storage"
)

const (
	// arabicLetters covers the base Arabic block plus extended
	// alef/hamza code points.
	arabicLetters = `[\x{0621}-\x{064A}\x{0671}-\x{0673}\x{0675}]`
	// diacritics covers the combining-mark block plus the dagger
	// alef and hamza variants.
	diacritics = `[\x{064B}-\x{0652}\x{0670}\x{0653}-\x{0655}]`
	// tatweel is the elongation mark, always optional after a
	// position.
	tatweel = `\x{0640}*`
)

// Position describes one letter slot of a template: a literal letter
// or any consonant, with an explicit diacritic set or any diacritics.
type Position struct {
	Letter        string   `json:"letter"`
	AnyLetter     bool     `json:"any_letter"`
	Diacritics    []string `json:"diacritics"`
	AnyDiacritics bool     `json:"any_diacritics"`
}

// Template is an ordered list of positions with attachment flags.
// When AllowPrefix is false the match must start at a word boundary,
// and likewise AllowSuffix for the end.
type Template struct {
	Positions   []Position `json:"segments"`
	AllowPrefix bool       `json:"allow_prefix"`
	AllowSuffix bool       `json:"allow_suffix"`
}

// Matcher is a compiled template.
type Matcher struct {
	re          *regexp.Regexp
	allowPrefix bool
	allowSuffix bool
}

// Compile builds the matcher for a template.
func Compile(t Template) (*Matcher, error) {
	if len(t.Positions) == 0 {
		return nil, kerr.NewInvalid("segments", "pattern has no positions")
	}
	var b strings.Builder
	for _, pos := range t.Positions {
		if pos.AnyLetter || pos.Letter == "" {
			b.WriteString(arabicLetters)
		} else {
			b.WriteString(regexp.QuoteMeta(pos.Letter))
		}
		if !pos.AnyDiacritics {
			for _, d := range pos.Diacritics {
				if d != "" {
					b.WriteString(regexp.QuoteMeta(d))
				}
			}
		}
		// Extra combining marks are tolerated even when specific
		// ones were named.
		b.WriteString(diacritics)
		b.WriteString("*")
		b.WriteString(tatweel)
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, kerr.Invalidf("segments", "pattern does not compile: %v", err)
	}
	return &Matcher{re: re, allowPrefix: t.AllowPrefix, allowSuffix: t.AllowSuffix}, nil
}

// Expr returns the compiled regular expression source.
func (m *Matcher) Expr() string { return m.re.String() }

// Count returns the number of boundary-respecting matches in text.
// The regular expression engine has no lookaround, so attachment is
// checked against the runes adjacent to each candidate match; a
// rejected candidate only advances the scan by one rune.
func (m *Matcher) Count(text string) int {
	count := 0
	offset := 0
	for offset < len(text) {
		loc := m.re.FindStringIndex(text[offset:])
		if loc == nil {
			break
		}
		start, end := offset+loc[0], offset+loc[1]
		if m.boundaryOK(text, start, end) {
			count++
			if end == start {
				end += runeLen(text, start)
			}
			offset = end
			continue
		}
		offset = start + runeLen(text, start)
	}
	return count
}

func (m *Matcher) boundaryOK(text string, start, end int) bool {
	if !m.allowPrefix && start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsSpace(r) {
			return false
		}
	}
	if !m.allowSuffix && end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func runeLen(s string, i int) int {
	_, n := utf8.DecodeRuneInString(s[i:])
	if n == 0 {
		return 1
	}
	return n
}

// VerseMatch is one verse the pattern occurred in.
type VerseMatch struct {
	Ref   string `json:"ref"`
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// SearchVerses runs a template over every stored verse text and
// returns matching verses ranked by occurrence count, plus the total
// occurrence count across the corpus.
func SearchVerses(ctx context.Context, store *storage.Store, t Template, limit int) ([]VerseMatch, int, error) {
	m, err := Compile(t)
	if err != nil {
		return nil, 0, err
	}
	texts, err := store.GetAllVerseTexts(ctx, 0)
	if err != nil {
		return nil, 0, err
	}
	var matches []VerseMatch
	total := 0
	for _, vt := range texts {
		n := m.Count(vt.Text)
		if n == 0 {
			continue
		}
		total += n
		matches = append(matches, VerseMatch{Ref: vt.Ref, Text: vt.Text, Count: n})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Count > matches[j].Count
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}
