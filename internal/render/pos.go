package render

import "strings"

// posLongNames maps corpus part-of-speech codes to their long display
// names. Unknown codes degrade to a title-cased rendering.
var posLongNames = map[string]string{
	"N":        "Noun",
	"PN":       "Proper Noun",
	"ADJ":      "Adjective",
	"V":        "Verb",
	"P":        "Preposition",
	"PRON":     "Pronoun",
	"DET":      "Determiner",
	"REL":      "Relative Pronoun",
	"T":        "Particle",
	"NEG":      "Negative Particle",
	"CONJ":     "Conjunction",
	"INTERROG": "Interrogative",
	"VOC":      "Vocative Particle",
	"SUB":      "Subordinating Conjunction",
	"EMPH":     "Emphatic Particle",
	"IMPV":     "Imperative Particle",
	"ACC":      "Accusative Particle",
	"AMD":      "Amendment Particle",
	"ANS":      "Answer Particle",
	"AVR":      "Aversion Particle",
	"CAUS":     "Causative Particle",
	"CERT":     "Certainty Particle",
	"CIRC":     "Circumstantial Particle",
	"COM":      "Comitative Particle",
	"COND":     "Conditional Particle",
	"EQ":       "Equalization Particle",
	"EXH":      "Exhortation Particle",
	"EXL":      "Explanation Particle",
	"EXP":      "Exceptive Particle",
	"FUT":      "Future Particle",
	"INC":      "Inceptive Particle",
	"INT":      "Intensification Particle",
	"INTG":     "Interrogative Particle",
	"PRO":      "Prohibition Particle",
	"REM":      "Resumption Particle",
	"RES":      "Restriction Particle",
	"RET":      "Retraction Particle",
	"RSLT":     "Result Particle",
	"SUP":      "Supplemental Particle",
	"SUR":      "Surprise Particle",
}

// POSLongName returns the long display name of a part-of-speech code.
func POSLongName(pos string) string {
	if name, ok := posLongNames[strings.ToUpper(pos)]; ok {
		return name
	}
	return titleCase(pos)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 && r[0] >= 'a' && r[0] <= 'z' {
			r[0] -= 'a' - 'A'
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// phraseGlosses maps phrase labels to readable descriptions.
var phraseGlosses = map[string]string{
	"PP": "Prepositional Phrase",
	"NP": "Noun Phrase",
	"VP": "Verb Phrase",
	"AP": "Adjectival Phrase",
	"CP": "Conjunctive Phrase",
	"SC": "Subordinate Clause",
}

// phraseFnGlosses maps phrase-function tags to readable descriptions.
var phraseFnGlosses = map[string]string{
	"jarr":        "Genitive Construction",
	"mubtada":     "Subject (Mubtada)",
	"khabar":      "Predicate (Khabar)",
	"fail":        "Agent (Fa'il)",
	"maful":       "Object (Maf'ul)",
	"mudaf":       "Annexed (Mudaf)",
	"mudaf_ilayh": "Annexing (Mudaf Ilayh)",
	"sila":        "Relative Clause (Sila)",
	"hal":         "Circumstantial (Hal)",
}

func glossPhrase(label string) string {
	if g, ok := phraseGlosses[strings.ToUpper(label)]; ok {
		return g
	}
	return label
}

func glossPhraseFn(fn string) string {
	if g, ok := phraseFnGlosses[strings.ToLower(fn)]; ok {
		return g
	}
	return fn
}
