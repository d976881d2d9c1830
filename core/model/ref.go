package model

import (
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	kerr "github.com/kalimaproject/kalima/core/errors"
)

// Location addresses a verse, a token within it, or a segment within the
// token. Parsed from "s:a", "s:a:w", or "s:a:w:g".
type Location struct {
	Surah   int64 `json:"surah"`
	Ayah    int64 `json:"ayah"`
	Token   int   `json:"token,omitempty"`
	Segment int   `json:"segment,omitempty"`
}

// HasToken reports whether the location addresses a specific token.
func (l Location) HasToken() bool { return l.Token > 0 }

// HasSegment reports whether the location addresses a specific segment.
func (l Location) HasSegment() bool { return l.Segment > 0 }

// String renders the location back to its colon form.
func (l Location) String() string {
	s := VerseRef(l.Surah, l.Ayah)
	if l.Token > 0 {
		s += ":" + strconv.Itoa(l.Token)
		if l.Segment > 0 {
			s += ":" + strconv.Itoa(l.Segment)
		}
	}
	return s
}

type refGrammar struct {
	Surah   int64 `parser:"@Number"`
	Ayah    int64 `parser:"Colon @Number"`
	Token   *int  `parser:"(Colon @Number"`
	Segment *int  `parser:"(Colon @Number)?)?"`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Colon", Pattern: `:`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
)

// ParseLocation parses a "surah:ayah[:token[:segment]]" reference.
// Surah and ayah must be positive; token and segment are 1-based.
func ParseLocation(s string) (Location, error) {
	g, err := refParser.ParseString("", s)
	if err != nil {
		return Location{}, kerr.Invalidf("ref", "bad reference %q: %v", s, err)
	}
	loc := Location{Surah: g.Surah, Ayah: g.Ayah}
	if g.Token != nil {
		loc.Token = *g.Token
	}
	if g.Segment != nil {
		loc.Segment = *g.Segment
	}
	if loc.Surah < 1 || loc.Ayah < 1 {
		return Location{}, kerr.Invalidf("ref", "reference %q: surah and ayah must be positive", s)
	}
	if loc.Segment > 0 && loc.Token == 0 {
		return Location{}, kerr.Invalidf("ref", "reference %q: segment without token", s)
	}
	return loc, nil
}

// MustParseLocation is ParseLocation for known-good literals; it panics
// on error.
func MustParseLocation(s string) Location {
	loc, err := ParseLocation(s)
	if err != nil {
		panic(err)
	}
	return loc
}
