package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/internal/formats"
	"github.com/kalimaproject/kalima/internal/index"
	"github.com/kalimaproject/kalima/internal/ingest"
	"github.com/kalimaproject/kalima/internal/storage"
)

func testApp(t *testing.T) *appEnv {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "kalima.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ix := index.New()
	return &appEnv{
		ctx:   context.Background(),
		store: store,
		index: ix,
		svc:   ingest.New(store, ix, formats.NewRegistry()),
	}
}

const testCorpus = `{"surah":{"number":1,"name":"Al-Fatiha"},"ayah":1,"text":"بِسْمِ ٱللَّهِ","tokens":[{"form":"بِسْمِ","segments":[{"type":"stem","form":"سْمِ","root":"سمو","pos":"N"}]},{"form":"ٱللَّهِ","segments":[{"type":"stem","root":"اله","pos":"PN"}]}]}
`

func ingestCorpus(t *testing.T, app *appEnv) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := os.WriteFile(path, []byte(testCorpus), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := &IngestCmd{Format: "primary", Path: path}
	if err := cmd.Run(app); err != nil {
		t.Fatalf("ingest: %v", err)
	}
}

func TestParseVerseRef(t *testing.T) {
	surah, ayah, err := parseVerseRef("2:255")
	if err != nil {
		t.Fatalf("parseVerseRef: %v", err)
	}
	if surah != 2 || ayah != 255 {
		t.Errorf("got %d:%d, want 2:255", surah, ayah)
	}

	for _, bad := range []string{"", "2", "1:1:3", "x:y"} {
		if _, _, err := parseVerseRef(bad); !kerr.IsInvalid(err) {
			t.Errorf("parseVerseRef(%q) = %v, want invalid error", bad, err)
		}
	}
}

func TestVerseCmd(t *testing.T) {
	app := testApp(t)
	ingestCorpus(t, app)

	if err := (&VerseCmd{Ref: "1:1"}).Run(app); err != nil {
		t.Errorf("verse: %v", err)
	}
	if err := (&VerseCmd{Ref: "1:1", JSON: true}).Run(app); err != nil {
		t.Errorf("verse --json: %v", err)
	}
	if err := (&VerseCmd{Ref: "9:9"}).Run(app); !kerr.IsNotFound(err) {
		t.Errorf("missing verse: got %v, want not-found error", err)
	}
}

func TestSearchCmd(t *testing.T) {
	app := testApp(t)
	ingestCorpus(t, app)

	cmd := &SearchCmd{Filter: []string{"root=سمو"}, Limit: 10}
	if err := cmd.Run(app); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := app.index.DocCount(); got != 2 {
		t.Errorf("index holds %d documents after reindex, want 2", got)
	}

	bad := &SearchCmd{Filter: []string{"root"}}
	if err := bad.Run(app); !kerr.IsInvalid(err) {
		t.Errorf("malformed filter: got %v, want invalid error", err)
	}
}

func TestAnnotateAddGeneratesID(t *testing.T) {
	app := testApp(t)
	ingestCorpus(t, app)

	cmd := &AnnotateAddCmd{Target: "1:1:0", Payload: `{"note":"x"}`, Layer: "notes"}
	if err := cmd.Run(app); err != nil {
		t.Fatalf("annotate add: %v", err)
	}

	annotations, err := app.store.ListAnnotations(app.ctx, "1:1:0")
	if err != nil {
		t.Fatalf("ListAnnotations: %v", err)
	}
	if len(annotations) != 1 {
		t.Fatalf("got %d annotations, want 1", len(annotations))
	}
	if annotations[0].ID == "" {
		t.Error("stored annotation has no generated id")
	}
}

func TestConnectAddStoresMeta(t *testing.T) {
	app := testApp(t)
	ingestCorpus(t, app)

	cmd := &ConnectAddCmd{From: "1:1:0", To: "1:1:1", Layer: "syntax", Meta: `{"kind":"idafa"}`}
	if err := cmd.Run(app); err != nil {
		t.Fatalf("connect add: %v", err)
	}

	conns, err := app.store.ListConnectionsForVerse(app.ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListConnectionsForVerse: %v", err)
	}
	if len(conns) != 1 {
		t.Fatalf("got %d connections, want 1", len(conns))
	}
	if conns[0].ID == "" {
		t.Error("stored connection has no generated id")
	}
	if got := string(conns[0].Meta); got != `{"kind":"idafa"}` {
		t.Errorf("meta = %q, want %q", got, `{"kind":"idafa"}`)
	}

	bare := &ConnectAddCmd{From: "1:1:1", To: "1:1:0", ID: "c-bare"}
	if err := bare.Run(app); err != nil {
		t.Fatalf("connect add without meta: %v", err)
	}
}

func TestTreeAndInspectCmds(t *testing.T) {
	app := testApp(t)
	ingestCorpus(t, app)

	if err := (&TreeCmd{Ref: "1:1"}).Run(app); err != nil {
		t.Errorf("tree: %v", err)
	}
	if err := (&InspectCmd{Ref: "1:1"}).Run(app); err != nil {
		t.Errorf("inspect: %v", err)
	}
}

func TestStatsCmd(t *testing.T) {
	app := testApp(t)
	ingestCorpus(t, app)

	if err := (&StatsCmd{}).Run(app); err != nil {
		t.Errorf("stats: %v", err)
	}
}
