package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/core/model"
	"github.com/kalimaproject/kalima/internal/formats"
	"github.com/kalimaproject/kalima/internal/index"
	"github.com/kalimaproject/kalima/internal/storage"
)

func testService(t *testing.T) (*Service, *storage.Store, *index.Index) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "kalima.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ix := index.New()
	return New(store, ix, formats.NewRegistry()), store, ix
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const primaryCorpus = `{"surah":{"number":1,"name":"Al-Fatiha"},"ayah":1,"text":"بِسْمِ ٱللَّهِ","tokens":[{"form":"بِسْمِ","segments":[{"type":"stem","form":"سْمِ","root":"سمو","pos":"N"}]},{"form":"ٱللَّهِ","segments":[{"type":"stem","root":"اله","pos":"PN"}]}]}
`

// TestFilePrimary checks a full primary run: storage rows, committed
// index, verse text, surah name, and provenance record.
func TestFilePrimary(t *testing.T) {
	svc, store, ix := testService(t)
	ctx := context.Background()
	path := writeFile(t, "corpus.jsonl", primaryCorpus)

	stats, err := svc.File(ctx, "primary", path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if stats.Verses != 1 || stats.Tokens != 2 || stats.Segments != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Hash == "" {
		t.Error("stats carry no content hash")
	}

	v, err := store.GetVerse(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetVerse: %v", err)
	}
	if v.Text != "بِسْمِ ٱللَّهِ" || v.Surah.Name != "Al-Fatiha" {
		t.Errorf("verse = %+v", v)
	}
	if len(v.Tokens) != 2 {
		t.Errorf("got %d tokens", len(v.Tokens))
	}

	hits, err := ix.SearchWithFilters("", []model.QueryFilter{
		{Field: "root", Values: []string{"اله"}},
	}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "1:1:1" {
		t.Errorf("index hits = %+v", hits)
	}

	prov, err := store.GetResearchData(ctx, "ingest:primary:corpus.jsonl")
	if err != nil {
		t.Fatalf("provenance record: %v", err)
	}
	var rec struct {
		Hash   string `json:"hash"`
		Verses int    `json:"verses"`
	}
	if err := json.Unmarshal(prov, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Hash != stats.Hash || rec.Verses != 1 {
		t.Errorf("provenance = %+v", rec)
	}
}

// TestFileNormalizesTokenIDs checks a source-supplied token id is
// replaced by the coordinate id, so index hits always hydrate.
func TestFileNormalizesTokenIDs(t *testing.T) {
	svc, store, ix := testService(t)
	ctx := context.Background()
	corpus := `{"surah":{"number":1},"ayah":1,"tokens":[{"id":"tok-abc","form":"بِسْمِ","segments":[{"type":"stem","root":"سمو","pos":"N"}]}]}
`
	if _, err := svc.File(ctx, "primary", writeFile(t, "corpus.jsonl", corpus)); err != nil {
		t.Fatalf("File: %v", err)
	}

	hits, err := ix.SearchWithFilters("", []model.QueryFilter{
		{Field: "root", Values: []string{"سمو"}},
	}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "1:1:0" {
		t.Fatalf("index hits = %+v, want one hit with id 1:1:0", hits)
	}
	views, err := store.HydrateSegments(ctx, hits)
	if err != nil {
		t.Fatalf("HydrateSegments: %v", err)
	}
	if len(views) != 1 || views[0].ID != "1:1:0" {
		t.Errorf("hydrated views = %+v, want the 1:1:0 token", views)
	}
}

// TestFileAutodetect checks format detection from the file name.
func TestFileAutodetect(t *testing.T) {
	svc, _, _ := testService(t)
	path := writeFile(t, "corpus.jsonl", primaryCorpus)
	stats, err := svc.File(context.Background(), "", path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if stats.Format != "primary" {
		t.Errorf("detected format = %q, want primary", stats.Format)
	}
}

// TestFileIdempotent checks re-ingesting the same file changes nothing.
func TestFileIdempotent(t *testing.T) {
	svc, store, ix := testService(t)
	ctx := context.Background()
	path := writeFile(t, "corpus.jsonl", primaryCorpus)

	for i := 0; i < 2; i++ {
		if _, err := svc.File(ctx, "primary", path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if n, _ := store.CountVersesWithTokens(ctx); n != 1 {
		t.Errorf("verses with tokens = %d, want 1", n)
	}
	if n := ix.DocCount(); n != 2 {
		t.Errorf("index docs = %d, want 2", n)
	}
}

// TestFileMalformedPrimaryAborts checks a bad line fails the whole run
// and persists nothing.
func TestFileMalformedPrimaryAborts(t *testing.T) {
	svc, store, _ := testService(t)
	ctx := context.Background()
	path := writeFile(t, "corpus.jsonl", primaryCorpus+"garbage\n")

	if _, err := svc.File(ctx, "primary", path); !kerr.IsInvalid(err) {
		t.Fatalf("got %v, want invalid", err)
	}
	if n, _ := store.CountVerses(ctx); n != 0 {
		t.Errorf("rows persisted from aborted run: %d verses", n)
	}
}

// TestFileTanzilBackfill checks the XML source corrects verse text
// without touching token rows.
func TestFileTanzilBackfill(t *testing.T) {
	svc, store, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.File(ctx, "primary", writeFile(t, "corpus.jsonl", primaryCorpus)); err != nil {
		t.Fatal(err)
	}
	xml := `<quran><sura index="1" name="الفاتحة"><aya index="1" text="corrected text"/></sura></quran>`
	if _, err := svc.File(ctx, "tanzil", writeFile(t, "quran.xml", xml)); err != nil {
		t.Fatalf("tanzil run: %v", err)
	}

	v, err := store.GetVerse(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.Text != "corrected text" {
		t.Errorf("text = %q, want backfilled", v.Text)
	}
	if len(v.Tokens) != 2 {
		t.Errorf("token rows disturbed: %d", len(v.Tokens))
	}
	if v.Surah.Name != "الفاتحة" {
		t.Errorf("surah name = %q", v.Surah.Name)
	}
}

// TestFileLegacy checks a fallback-format run skips bad rows instead of
// aborting.
func TestFileLegacy(t *testing.T) {
	svc, store, _ := testService(t)
	ctx := context.Background()
	content := "(1:1:1:1)\tbismi\tN\tSTEM|ROOT:smw\nnot a row\n"
	stats, err := svc.File(ctx, "legacy", writeFile(t, "morph.txt", content))
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if stats.Verses != 1 || stats.Tokens != 1 {
		t.Errorf("stats = %+v", stats)
	}
	view, err := store.GetSegment(ctx, "1:1:0")
	if err != nil {
		t.Fatal(err)
	}
	if view.Segments[0].Root != "smw" {
		t.Errorf("segment = %+v", view.Segments[0])
	}
}

// TestFallbackVerse checks that registered fallback corpora are parsed
// lazily and served by coordinate without touching storage.
func TestFallbackVerse(t *testing.T) {
	svc, store, _ := testService(t)
	ctx := context.Background()
	path := writeFile(t, "morph.txt", "(1:1:1:1)\tbismi\tN\tSTEM|ROOT:smw\n")

	if err := svc.AddFallback("legacy", path); err != nil {
		t.Fatalf("AddFallback: %v", err)
	}

	v, err := svc.FallbackVerse(1, 1)
	if err != nil {
		t.Fatalf("FallbackVerse: %v", err)
	}
	if v == nil || len(v.Tokens) != 1 {
		t.Fatalf("fallback verse = %+v", v)
	}
	if v.Tokens[0].Segments[0].Root != "smw" {
		t.Errorf("segment = %+v", v.Tokens[0].Segments[0])
	}

	missing, err := svc.FallbackVerse(9, 9)
	if err != nil || missing != nil {
		t.Errorf("missing coordinate: got %+v, %v; want nil, nil", missing, err)
	}

	if n, err := store.CountVerses(ctx); err != nil || n != 0 {
		t.Errorf("storage verse count = %d, %v; fallback lookups must not persist", n, err)
	}
}

// TestReindexAll checks the index can be rebuilt from storage alone.
func TestReindexAll(t *testing.T) {
	svc, store, ix := testService(t)
	ctx := context.Background()

	if _, err := svc.File(ctx, "primary", writeFile(t, "corpus.jsonl", primaryCorpus)); err != nil {
		t.Fatalf("File: %v", err)
	}

	fresh := index.New()
	svc2 := New(store, fresh, formats.NewRegistry())
	docs, err := svc2.ReindexAll(ctx)
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if docs != 2 {
		t.Errorf("reindexed %d documents, want 2", docs)
	}
	if fresh.DocCount() != ix.DocCount() {
		t.Errorf("rebuilt index has %d docs, original %d", fresh.DocCount(), ix.DocCount())
	}
}
