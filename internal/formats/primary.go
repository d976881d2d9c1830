package formats

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/core/model"
)

// Primary reads the line-delimited primary corpus: one JSON verse
// record per line, already close to canonical shape. This source is
// authoritative, so a malformed line aborts the parse instead of being
// skipped.
type Primary struct{}

// NewPrimary returns the primary-format normalizer.
func NewPrimary() *Primary { return &Primary{} }

func (*Primary) Name() string { return "primary" }

func (*Primary) Detect(path string) bool {
	p := trimExt(path)
	return strings.HasSuffix(p, ".jsonl") || strings.HasSuffix(p, ".ndjson")
}

// rawVerse is the wire shape of one primary line. Token ids may be
// strings or integers across corpus generations.
type rawVerse struct {
	Surah struct {
		Number int64   `json:"number"`
		Name   *string `json:"name"`
	} `json:"surah"`
	Ayah   int64      `json:"ayah"`
	Text   *string    `json:"text"`
	Tokens []rawToken `json:"tokens"`
}

type rawToken struct {
	ID       json.RawMessage `json:"id"`
	Form     string          `json:"form"`
	Segments []rawSegment    `json:"segments"`
}

type rawSegment struct {
	ID              *string `json:"id"`
	Type            *string `json:"type"`
	Form            *string `json:"form"`
	Root            *string `json:"root"`
	Lemma           *string `json:"lemma"`
	Pattern         *string `json:"pattern"`
	POS             *string `json:"pos"`
	VerbForm        *string `json:"verb_form"`
	Voice           *string `json:"voice"`
	Mood            *string `json:"mood"`
	Tense           *string `json:"tense"`
	Aspect          *string `json:"aspect"`
	Person          *string `json:"person"`
	Number          *string `json:"number"`
	Gender          *string `json:"gender"`
	Case            *string `json:"case"`
	DependencyRel   *string `json:"dependency_rel"`
	Role            *string `json:"role"`
	DerivedNounType *string `json:"derived_noun_type"`
	State           *string `json:"state"`
	Features        *string `json:"features"`
	WordIndex       int     `json:"word_index"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (*Primary) Parse(r io.Reader) ([]model.Verse, error) {
	var verses []model.Verse
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var raw rawVerse
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, kerr.Invalidf("primary corpus", "line %d: %v", lineNo, err)
		}
		if raw.Surah.Number < 1 || raw.Ayah < 1 {
			return nil, kerr.Invalidf("primary corpus", "line %d: bad verse coordinate %d:%d",
				lineNo, raw.Surah.Number, raw.Ayah)
		}

		verse := model.Verse{
			Surah: model.SurahInfo{Number: raw.Surah.Number, Name: deref(raw.Surah.Name)},
			Ayah:  raw.Ayah,
			Text:  deref(raw.Text),
		}
		for i, rt := range raw.Tokens {
			tok := model.Token{
				ID:    tokenIDFromRaw(rt.ID, raw.Surah.Number, raw.Ayah, i),
				Index: i,
				Text:  rt.Form,
			}
			for j, rs := range rt.Segments {
				seg := model.Segment{
					ID:              deref(rs.ID),
					Type:            deref(rs.Type),
					Form:            deref(rs.Form),
					Root:            deref(rs.Root),
					Lemma:           deref(rs.Lemma),
					Pattern:         deref(rs.Pattern),
					POS:             deref(rs.POS),
					VerbForm:        deref(rs.VerbForm),
					Voice:           deref(rs.Voice),
					Mood:            deref(rs.Mood),
					Tense:           deref(rs.Tense),
					Aspect:          deref(rs.Aspect),
					Person:          deref(rs.Person),
					Number:          deref(rs.Number),
					Gender:          deref(rs.Gender),
					Case:            deref(rs.Case),
					DependencyRel:   deref(rs.DependencyRel),
					Role:            deref(rs.Role),
					DerivedNounType: deref(rs.DerivedNounType),
					State:           deref(rs.State),
					Features:        deref(rs.Features),
					WordIndex:       rs.WordIndex,
				}
				if seg.ID == "" {
					seg.ID = model.SegmentID(raw.Surah.Number, raw.Ayah, i, j)
				}
				if seg.Form == "" {
					seg.Form = rt.Form
				}
				tok.Segments = append(tok.Segments, seg)
			}
			verse.Tokens = append(verse.Tokens, tok)
		}
		verses = append(verses, verse)
	}
	if err := sc.Err(); err != nil {
		return nil, kerr.Invalidf("primary corpus", "read: %v", err)
	}
	return verses, nil
}

// tokenIDFromRaw keeps a string id from the source; integer ids (older
// corpus generations used the 1-based word number) and missing ids both
// map to the deterministic coordinate id.
func tokenIDFromRaw(raw json.RawMessage, surah, ayah int64, index int) string {
	if len(raw) > 0 {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return model.TokenID(surah, ayah, index)
}
