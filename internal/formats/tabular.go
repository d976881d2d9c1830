package formats

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/kalimaproject/kalima/core/model"
)

// Tabular reads the column-positional morphology export: one row per
// word with explicit role/possessive/case/phrase fields. Malformed rows
// are skipped, not fatal.
type Tabular struct{}

// NewTabular returns the tabular-export normalizer.
func NewTabular() *Tabular { return &Tabular{} }

func (*Tabular) Name() string { return "tabular" }

func (*Tabular) Detect(path string) bool {
	p := trimExt(path)
	return strings.HasSuffix(p, ".csv") || strings.HasSuffix(p, ".tsv")
}

// Fixed column positions of the export.
const (
	colSurah = iota
	colAyah
	colWord
	colSurface
	colLemma
	colSegmented
	colMorphTag
	colMorphType
	colPunct
	colInvariable
	colRole
	colPossessive
	colCaseMood
	colCaseMarker
	colPhrase
	colPhraseFn
	colNotes
	colGender
	colNumber
	tabularMinColumns = 19
)

func (*Tabular) Parse(r io.Reader) ([]model.Verse, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	type key struct {
		surah, ayah int64
		word        int
	}
	rows := map[key]model.Segment{}
	surfaces := map[key]string{}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken row is skipped like any other malformed row.
			continue
		}
		if len(rec) < tabularMinColumns {
			continue
		}
		surah, err1 := strconv.ParseInt(strings.TrimSpace(rec[colSurah]), 10, 64)
		ayah, err2 := strconv.ParseInt(strings.TrimSpace(rec[colAyah]), 10, 64)
		word, err3 := strconv.Atoi(strings.TrimSpace(rec[colWord]))
		if err1 != nil || err2 != nil || err3 != nil || surah < 1 || ayah < 1 || word < 1 {
			// Header row or garbage coordinates.
			continue
		}

		get := func(i int) string { return strings.TrimSpace(rec[i]) }

		// The segmented form carries the morpheme boundaries; the raw
		// word is the fallback.
		form := get(colSegmented)
		if form == "" {
			form = get(colSurface)
		}
		surface := form
		segType := get(colMorphType)
		if segType == "" {
			segType = "stem"
		}
		pos := get(colMorphTag)
		if isStemType(segType) {
			form = normalizeStem(form, pos)
		}

		seg := model.Segment{
			Type:      segType,
			Form:      form,
			Lemma:     get(colLemma),
			POS:       pos,
			Case:      get(colCaseMood),
			Role:      get(colRole),
			WordIndex: word,
		}
		seg.Features = buildFeatures([][2]string{
			{"punct", get(colPunct)},
			{"invar", get(colInvariable)},
			{"poss", get(colPossessive)},
			{"case_marker", get(colCaseMarker)},
			{"phrase", get(colPhrase)},
			{"phrase_fn", get(colPhraseFn)},
			{"notes", get(colNotes)},
		})
		if g := get(colGender); g != "" {
			seg.Gender = g
		}
		if n := get(colNumber); n != "" {
			seg.Number = n
		}

		k := key{surah, ayah, word}
		rows[k] = seg
		surfaces[k] = surface
	}

	// Fold per-word rows into ordered verse records.
	type vkey struct{ surah, ayah int64 }
	byVerse := map[vkey][]key{}
	for k := range rows {
		vk := vkey{k.surah, k.ayah}
		byVerse[vk] = append(byVerse[vk], k)
	}
	vkeys := make([]vkey, 0, len(byVerse))
	for vk := range byVerse {
		vkeys = append(vkeys, vk)
	}
	sort.Slice(vkeys, func(i, j int) bool {
		if vkeys[i].surah != vkeys[j].surah {
			return vkeys[i].surah < vkeys[j].surah
		}
		return vkeys[i].ayah < vkeys[j].ayah
	})

	var verses []model.Verse
	for _, vk := range vkeys {
		words := byVerse[vk]
		sort.Slice(words, func(i, j int) bool { return words[i].word < words[j].word })

		verse := model.Verse{Surah: model.SurahInfo{Number: vk.surah}, Ayah: vk.ayah}
		for i, k := range words {
			seg := rows[k]
			seg.ID = model.SegmentID(vk.surah, vk.ayah, i, 0)
			verse.Tokens = append(verse.Tokens, model.Token{
				ID:       model.TokenID(vk.surah, vk.ayah, i),
				Index:    i,
				Text:     surfaces[k],
				Segments: []model.Segment{seg},
			})
		}
		verses = append(verses, verse)
	}
	return verses, nil
}

// buildFeatures renders present key/value pairs as `k:v | k:v`.
func buildFeatures(pairs [][2]string) string {
	var parts []string
	for _, p := range pairs {
		if p[1] != "" {
			parts = append(parts, p[0]+":"+p[1])
		}
	}
	return strings.Join(parts, " | ")
}

func isStemType(t string) bool {
	return strings.Contains(strings.ToLower(t), "stem")
}

// Arabic orthography of segmentation artifacts.
const (
	alefWasla = 'ٱ' // ٱ
	alef      = 'ا' // ا
	lam       = 'ل' // ل
)

func isCombining(r rune) bool {
	return (r >= 0x064B && r <= 0x0652) || r == 0x0670 || (r >= 0x0653 && r <= 0x0655)
}

// normalizeStem aligns a stem's orthography with what the index stores:
// a determiner-tagged stem loses its leading definite article, any
// other stem loses one leading connecting glottal stop.
func normalizeStem(form, pos string) string {
	runes := []rune(form)
	if len(runes) == 0 {
		return form
	}
	if strings.Contains(strings.ToUpper(pos), "DET") {
		if trimmed, ok := trimDefiniteArticle(runes); ok {
			return string(trimmed)
		}
		return form
	}
	if runes[0] == alefWasla {
		i := 1
		for i < len(runes) && isCombining(runes[i]) {
			i++
		}
		return string(runes[i:])
	}
	return form
}

// trimDefiniteArticle drops a leading alef(-wasla) + lam sequence with
// any combining marks between.
func trimDefiniteArticle(runes []rune) ([]rune, bool) {
	if len(runes) == 0 || (runes[0] != alefWasla && runes[0] != alef) {
		return runes, false
	}
	i := 1
	for i < len(runes) && isCombining(runes[i]) {
		i++
	}
	if i >= len(runes) || runes[i] != lam {
		return runes, false
	}
	i++
	for i < len(runes) && isCombining(runes[i]) {
		i++
	}
	return runes[i:], true
}
