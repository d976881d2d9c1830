package formats

import (
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/core/model"
)

// Tanzil reads the Tanzil-style XML text edition: sura elements with an
// index and name, aya elements with an index and text. It carries verse
// text and surah names only, no tokens; ingestion uses it to backfill
// canonical verse text without touching token rows.
type Tanzil struct{}

// NewTanzil returns the XML verse-text normalizer.
func NewTanzil() *Tanzil { return &Tanzil{} }

func (*Tanzil) Name() string { return "tanzil" }

func (*Tanzil) Detect(path string) bool {
	return strings.HasSuffix(trimExt(path), ".xml")
}

func (*Tanzil) Parse(r io.Reader) ([]model.Verse, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, kerr.Invalidf("tanzil corpus", "parse xml: %v", err)
	}

	var verses []model.Verse
	for _, sura := range xmlquery.Find(doc, "//sura") {
		number, err := strconv.ParseInt(sura.SelectAttr("index"), 10, 64)
		if err != nil || number < 1 {
			return nil, kerr.Invalidf("tanzil corpus", "sura element with bad index %q", sura.SelectAttr("index"))
		}
		name := sura.SelectAttr("name")
		for _, aya := range xmlquery.Find(sura, "aya") {
			ayah, err := strconv.ParseInt(aya.SelectAttr("index"), 10, 64)
			if err != nil || ayah < 1 {
				return nil, kerr.Invalidf("tanzil corpus", "aya element with bad index %q in sura %d",
					aya.SelectAttr("index"), number)
			}
			verses = append(verses, model.Verse{
				Surah: model.SurahInfo{Number: number, Name: name},
				Ayah:  ayah,
				Text:  aya.SelectAttr("text"),
			})
		}
	}
	if len(verses) == 0 {
		return nil, kerr.Invalidf("tanzil corpus", "no sura/aya elements found")
	}
	return verses, nil
}
