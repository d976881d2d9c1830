package index

import (
	kerr "github.com/kalimaproject/kalima/core/errors"
)

// Field identifies one indexed attribute. The set is closed: a filter
// naming an unknown field is rejected rather than silently ignored.
type Field int

const (
	FieldText Field = iota
	FieldRoots
	FieldLemmas
	FieldPOS
	FieldPattern
	FieldVerbForm
	FieldGender
	FieldNumber
	FieldCase
	FieldVoice
	FieldMood
	FieldTense
	FieldAspect
	numFields
)

var fieldNames = [numFields]string{
	FieldText:     "text",
	FieldRoots:    "roots",
	FieldLemmas:   "lemmas",
	FieldPOS:      "pos",
	FieldPattern:  "pattern",
	FieldVerbForm: "verb_form",
	FieldGender:   "gender",
	FieldNumber:   "number",
	FieldCase:     "case",
	FieldVoice:    "voice",
	FieldMood:     "mood",
	FieldTense:    "tense",
	FieldAspect:   "aspect",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// filter aliases accepted on top of the canonical names.
var fieldAliases = map[string]Field{
	"text":      FieldText,
	"root":      FieldRoots,
	"roots":     FieldRoots,
	"lemma":     FieldLemmas,
	"lemmas":    FieldLemmas,
	"pos":       FieldPOS,
	"pattern":   FieldPattern,
	"verb_form": FieldVerbForm,
	"gender":    FieldGender,
	"number":    FieldNumber,
	"case":      FieldCase,
	"voice":     FieldVoice,
	"mood":      FieldMood,
	"tense":     FieldTense,
	"aspect":    FieldAspect,
}

// ParseField maps a filter field name to its index field.
func ParseField(name string) (Field, error) {
	if f, ok := fieldAliases[name]; ok {
		return f, nil
	}
	return 0, kerr.Invalidf("filter field", "no index field named %q", name)
}

// defaultFields is where free-text query terms are looked up.
var defaultFields = []Field{FieldText, FieldRoots, FieldLemmas, FieldPOS, FieldPattern}
