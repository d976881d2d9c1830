// Package model defines the canonical segment model shared by the
// normalizers, storage engine, search index, and display layers.
package model

import (
	"encoding/json"
	"fmt"
)

// SurahInfo identifies a surah by number and name.
type SurahInfo struct {
	Number int64  `json:"number"`
	Name   string `json:"name,omitempty"`
}

// SurahSummary is the listing shape for a surah with its verse count.
type SurahSummary struct {
	Number    int64  `json:"number"`
	Name      string `json:"name"`
	AyahCount int64  `json:"ayah_count"`
}

// Segment is a morphological sub-unit of a token. All attributes beyond
// Type and Form are optional; empty string means the source did not tag it.
type Segment struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Form string `json:"form"`

	Root            string `json:"root,omitempty"`
	Lemma           string `json:"lemma,omitempty"`
	Pattern         string `json:"pattern,omitempty"`
	POS             string `json:"pos,omitempty"`
	VerbForm        string `json:"verb_form,omitempty"`
	Voice           string `json:"voice,omitempty"`
	Mood            string `json:"mood,omitempty"`
	Tense           string `json:"tense,omitempty"`
	Aspect          string `json:"aspect,omitempty"`
	Person          string `json:"person,omitempty"`
	Number          string `json:"number,omitempty"`
	Gender          string `json:"gender,omitempty"`
	Case            string `json:"case,omitempty"`
	DependencyRel   string `json:"dependency_rel,omitempty"`
	Role            string `json:"role,omitempty"`
	DerivedNounType string `json:"derived_noun_type,omitempty"`
	State           string `json:"state,omitempty"`

	// Features holds the raw tag bag from the source, as `key:value | key:value`
	// pairs for recognized tags and verbatim text for unrecognized ones.
	Features string `json:"features,omitempty"`

	// WordIndex is the 1-based word position this segment belongs to,
	// when the source declares one. Zero means undeclared.
	WordIndex int `json:"word_index,omitempty"`
}

// Token is one ordered orthographic unit of a verse with its segment list
// (prefixes, then stem, then suffixes, in source order).
type Token struct {
	ID       string    `json:"id"`
	Index    int       `json:"index"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

// Verse is a (surah, ayah) addressed scripture verse with its tokens.
type Verse struct {
	Surah  SurahInfo `json:"surah"`
	Ayah   int64     `json:"ayah"`
	Text   string    `json:"text,omitempty"`
	Tokens []Token   `json:"tokens,omitempty"`
}

// Ref returns the verse's "surah:ayah" reference string.
func (v *Verse) Ref() string {
	return fmt.Sprintf("%d:%d", v.Surah.Number, v.Ayah)
}

// Annotation is a free-form note keyed to a target id and a layer.
type Annotation struct {
	ID       string          `json:"id"`
	TargetID string          `json:"target_id"`
	Layer    string          `json:"layer,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// Connection is a typed edge between two token ids.
type Connection struct {
	ID        string          `json:"id"`
	FromToken string          `json:"from_token"`
	ToToken   string          `json:"to_token"`
	Layer     string          `json:"layer,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

// SegmentView is the denormalized read model: one token joined with its
// segments and annotations. It is the unit of indexing and hydration.
type SegmentView struct {
	ID          string       `json:"id"`
	VerseRef    string       `json:"verse_ref"`
	TokenIndex  int          `json:"token_index"`
	Text        string       `json:"text"`
	Segments    []Segment    `json:"segments"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// SearchHit is a ranked result id. Hits carry no payload; resolve them
// through the storage engine's hydration.
type SearchHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// QueryFilter restricts a search to documents carrying one of Values in
// the named field.
type QueryFilter struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// QuerySpec is a structured search request: free text plus exact filters.
type QuerySpec struct {
	Query   string        `json:"query"`
	Filters []QueryFilter `json:"filters,omitempty"`
	Limit   int           `json:"limit,omitempty"`
}

// DefaultSearchLimit bounds a QuerySpec with no explicit limit.
const DefaultSearchLimit = 50

// EffectiveLimit returns the spec's limit, or DefaultSearchLimit when unset.
func (s *QuerySpec) EffectiveLimit() int {
	if s.Limit <= 0 {
		return DefaultSearchLimit
	}
	return s.Limit
}

// TokenID returns the deterministic token id for a verse coordinate and
// 0-based token index, so re-ingesting the same record is idempotent.
func TokenID(surah, ayah int64, index int) string {
	return fmt.Sprintf("%d:%d:%d", surah, ayah, index)
}

// SegmentID returns the deterministic segment id used when a source omits
// its own.
func SegmentID(surah, ayah int64, tokenIndex, segIndex int) string {
	return fmt.Sprintf("seg-%d-%d-%d-%d", surah, ayah, tokenIndex, segIndex)
}

// VerseRef returns the "surah:ayah" reference string.
func VerseRef(surah, ayah int64) string {
	return fmt.Sprintf("%d:%d", surah, ayah)
}
