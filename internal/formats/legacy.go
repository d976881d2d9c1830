package formats

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kalimaproject/kalima/core/model"
)

// Legacy reads the tagged plaintext corpus: one row per morpheme,
// `(surah:ayah:token:segment)\tsurface\tPOS\ttags`, tags pipe-delimited.
// Malformed rows are skipped, not fatal.
type Legacy struct{}

// NewLegacy returns the legacy tagged-text normalizer.
func NewLegacy() *Legacy { return &Legacy{} }

func (*Legacy) Name() string { return "legacy" }

func (*Legacy) Detect(path string) bool {
	p := trimExt(path)
	return strings.HasSuffix(p, ".txt")
}

var legacyRefRe = regexp.MustCompile(`^\((\d+):(\d+):(\d+):(\d+)\)$`)

// keyed tags carried into their own segment attributes; anything else
// stays in the opaque feature bag.
var legacyTagRe = regexp.MustCompile(`^([A-Z_]+):(.*)$`)

type legacySeg struct {
	segNo int
	seg   model.Segment
}

func (*Legacy) Parse(r io.Reader) ([]model.Verse, error) {
	// verse coordinate → word number → segments
	byVerse := map[[2]int64]map[int][]legacySeg{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "LOCATION") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}
		m := legacyRefRe.FindStringSubmatch(strings.TrimSpace(parts[0]))
		if m == nil {
			continue
		}
		surah, _ := strconv.ParseInt(m[1], 10, 64)
		ayah, _ := strconv.ParseInt(m[2], 10, 64)
		word, _ := strconv.Atoi(m[3])
		segNo, _ := strconv.Atoi(m[4])
		if surah < 1 || ayah < 1 || word < 1 {
			continue
		}

		surface := strings.TrimSpace(parts[1])
		posCol := strings.TrimSpace(parts[2])
		var tags []string
		if len(parts) > 3 {
			tags = strings.Split(parts[3], "|")
		}

		seg := legacySegment(surface, posCol, tags)
		seg.WordIndex = word

		key := [2]int64{surah, ayah}
		if byVerse[key] == nil {
			byVerse[key] = map[int][]legacySeg{}
		}
		byVerse[key][word] = append(byVerse[key][word], legacySeg{segNo: segNo, seg: seg})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return assembleLegacy(byVerse), nil
}

// legacySegment folds the tag bag into segment attributes. Recognized
// keyed tags (ROOT:, LEM:, POS:, CASE:, MOOD:) and enumerated flags map
// to their fields; everything else is retained verbatim as features.
func legacySegment(surface, posCol string, tags []string) model.Segment {
	seg := model.Segment{Form: surface, POS: posCol}

	var extras []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		upper := strings.ToUpper(t)

		// The first bare prefix/stem/suffix tag fixes the segment type.
		if seg.Type == "" {
			switch {
			case strings.HasPrefix(upper, "PREFIX"):
				seg.Type = "prefix"
				continue
			case strings.HasPrefix(upper, "STEM"):
				seg.Type = "stem"
				continue
			case strings.HasPrefix(upper, "SUFFIX"):
				seg.Type = "suffix"
				continue
			}
		}

		if m := legacyTagRe.FindStringSubmatch(t); m != nil {
			switch m[1] {
			case "ROOT":
				seg.Root = m[2]
				continue
			case "LEM":
				seg.Lemma = m[2]
				continue
			case "POS":
				seg.POS = m[2]
				continue
			case "CASE":
				seg.Case = m[2]
				continue
			case "MOOD":
				seg.Mood = m[2]
				continue
			case "DEP":
				seg.DependencyRel = m[2]
				continue
			case "ROLE":
				seg.Role = m[2]
				continue
			}
		}

		switch upper {
		case "NOM", "ACC", "GEN":
			if seg.Case == "" {
				seg.Case = upper
			}
			continue
		case "M":
			seg.Gender = "m"
			continue
		case "F":
			seg.Gender = "f"
			continue
		case "MS", "FS", "MD", "FD", "MP", "FP":
			seg.Gender = strings.ToLower(upper[:1])
			seg.Number = numberFromFlag(upper[1:])
			continue
		case "S", "D", "P":
			// Bare P is the preposition POS tag, not a number flag.
			if upper != "P" || posCol == "" {
				seg.Number = numberFromFlag(upper)
				continue
			}
		case "1", "2", "3":
			seg.Person = upper
			continue
		case "PERF":
			seg.Tense = "perfect"
			seg.Aspect = "perfective"
			continue
		case "IMPF":
			seg.Tense = "imperfect"
			seg.Aspect = "imperfective"
			continue
		case "IMPV":
			seg.Tense = "imperative"
			continue
		case "ACT":
			seg.Voice = "active"
			continue
		case "PASS":
			seg.Voice = "passive"
			continue
		}

		// Person+gender+number clusters like 3MS, 2FP.
		if len(upper) >= 2 && upper[0] >= '1' && upper[0] <= '3' {
			rest := upper[1:]
			if ok := parsePGN(rest, &seg); ok {
				seg.Person = upper[:1]
				continue
			}
		}

		extras = append(extras, t)
	}
	seg.Features = strings.Join(extras, " | ")
	if seg.Type == "" {
		seg.Type = "stem"
	}
	return seg
}

func numberFromFlag(f string) string {
	switch f {
	case "S":
		return "singular"
	case "D":
		return "dual"
	case "P":
		return "plural"
	}
	return ""
}

// parsePGN fills gender/number from a MS/FS/MD/FD/MP/FP/S/D/P tail.
func parsePGN(rest string, seg *model.Segment) bool {
	switch len(rest) {
	case 1:
		n := numberFromFlag(rest)
		if n == "" {
			return false
		}
		seg.Number = n
		return true
	case 2:
		if rest[0] != 'M' && rest[0] != 'F' {
			return false
		}
		n := numberFromFlag(rest[1:])
		if n == "" {
			return false
		}
		seg.Gender = strings.ToLower(rest[:1])
		seg.Number = n
		return true
	}
	return false
}

// assembleLegacy folds the per-word segment map into ordered verse
// records. Word surface is the concatenation handled downstream; here
// each token keeps the first segment's surface as its text.
func assembleLegacy(byVerse map[[2]int64]map[int][]legacySeg) []model.Verse {
	keys := make([][2]int64, 0, len(byVerse))
	for k := range byVerse {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	var verses []model.Verse
	for _, key := range keys {
		surah, ayah := key[0], key[1]
		verse := model.Verse{Surah: model.SurahInfo{Number: surah}, Ayah: ayah}

		words := byVerse[key]
		wordNos := make([]int, 0, len(words))
		for w := range words {
			wordNos = append(wordNos, w)
		}
		sort.Ints(wordNos)

		for i, w := range wordNos {
			segs := words[w]
			sort.Slice(segs, func(a, b int) bool { return segs[a].segNo < segs[b].segNo })

			tok := model.Token{
				ID:    model.TokenID(surah, ayah, i),
				Index: i,
				Text:  segs[0].seg.Form,
			}
			var joined strings.Builder
			for j, ls := range segs {
				seg := ls.seg
				seg.ID = model.SegmentID(surah, ayah, i, j)
				tok.Segments = append(tok.Segments, seg)
				joined.WriteString(seg.Form)
			}
			if joined.Len() > 0 {
				tok.Text = joined.String()
			}
			verse.Tokens = append(verse.Tokens, tok)
		}
		verses = append(verses, verse)
	}
	return verses
}
