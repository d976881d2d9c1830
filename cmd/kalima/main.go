// Command kalima is the CLI driver for the corpus engine. It provides
// commands for ingesting corpus files, browsing verses, searching, and
// rendering grammatical analysis.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/core/model"
	"github.com/kalimaproject/kalima/core/sqlite"
	"github.com/kalimaproject/kalima/internal/analysis"
	"github.com/kalimaproject/kalima/internal/formats"
	"github.com/kalimaproject/kalima/internal/index"
	"github.com/kalimaproject/kalima/internal/ingest"
	"github.com/kalimaproject/kalima/internal/logging"
	"github.com/kalimaproject/kalima/internal/pattern"
	"github.com/kalimaproject/kalima/internal/render"
	"github.com/kalimaproject/kalima/internal/storage"
)

const version = "0.1.0"

// CLI defines the command-line interface for kalima.
var CLI struct {
	// Global flags
	DB        string   `name:"db" default:"kalima.db" help:"Path to the corpus database" type:"path"`
	LogLevel  string   `name:"log-level" default:"info" help:"Log level (debug, info, warn, error)"`
	LogFormat string   `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`
	Fallback  []string `help:"Fallback corpus file consulted when storage has no morphology (repeatable)" type:"existingfile"`

	Ingest   IngestCmd   `cmd:"" help:"Ingest a corpus file"`
	Verse    VerseCmd    `cmd:"" help:"Show one verse with its tokens"`
	Surah    SurahCmd    `cmd:"" help:"List the verses of one surah"`
	Surahs   SurahsCmd   `cmd:"" help:"List all surahs"`
	Search   SearchCmd   `cmd:"" help:"Search the corpus"`
	Inspect  InspectCmd  `cmd:"" help:"Show consolidated analysis for a verse"`
	Tree     TreeCmd     `cmd:"" help:"Render the grammar tree for a verse"`
	Pattern  PatternCmd  `cmd:"" help:"Search verses by a letter/diacritic pattern"`
	Pronouns PronounsCmd `cmd:"" help:"Detect pronoun segments in a verse"`
	List     ListCmd     `cmd:"" help:"List distinct values (roots, patterns, pos)"`
	Annotate AnnotateCmd `cmd:"" help:"Annotation operations"`
	Connect  ConnectCmd  `cmd:"" help:"Token connection operations"`
	Stats    StatsCmd    `cmd:"" help:"Show corpus statistics"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// appEnv carries the opened backends to the command handlers.
type appEnv struct {
	ctx   context.Context
	store *storage.Store
	index *index.Index
	svc   *ingest.Service
}

// parseVerseRef resolves an "s:a" argument.
func parseVerseRef(ref string) (int64, int64, error) {
	loc, err := model.ParseLocation(ref)
	if err != nil {
		return 0, 0, err
	}
	if loc.HasToken() {
		return 0, 0, kerr.NewInvalid("ref", "expected surah:ayah")
	}
	return loc.Surah, loc.Ayah, nil
}

// loadVerseSegments fetches a verse and its flattened segment rows.
func (app *appEnv) loadVerseSegments(ref string) (*model.Verse, []storage.VerseSegment, error) {
	surah, ayah, err := parseVerseRef(ref)
	if err != nil {
		return nil, nil, err
	}
	verse, err := app.store.GetVerse(app.ctx, surah, ayah)
	if err != nil {
		return nil, nil, err
	}
	segments, err := app.store.GetVerseSegments(app.ctx, surah, ayah)
	if err != nil {
		return nil, nil, err
	}
	if len(segments) == 0 {
		fb, err := app.svc.FallbackVerse(surah, ayah)
		if err != nil {
			return nil, nil, err
		}
		if fb != nil {
			segments = storage.SegmentsFromVerse(fb)
			if verse.Text == "" {
				verse.Text = fb.Text
			}
		}
	}
	return verse, segments, nil
}

// IngestCmd ingests one corpus file.
type IngestCmd struct {
	Format string `arg:"" enum:"primary,legacy,tabular,tanzil,auto" help:"Corpus format (or auto to detect)"`
	Path   string `arg:"" help:"Path to corpus file" type:"existingfile"`
}

func (c *IngestCmd) Run(app *appEnv) error {
	format := c.Format
	if format == "auto" {
		format = ""
	}
	stats, err := app.svc.File(app.ctx, format, c.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested: %s\n", stats.File)
	fmt.Printf("  Format: %s\n", stats.Format)
	fmt.Printf("  BLAKE3: %s\n", stats.Hash)
	fmt.Printf("  Verses: %d\n", stats.Verses)
	fmt.Printf("  Tokens: %d\n", stats.Tokens)
	fmt.Printf("  Segments: %d\n", stats.Segments)
	return nil
}

// VerseCmd shows one verse with its tokens and segments.
type VerseCmd struct {
	Ref  string `arg:"" help:"Verse reference (surah:ayah)"`
	JSON bool   `help:"Output as JSON"`
}

func (c *VerseCmd) Run(app *appEnv) error {
	surah, ayah, err := parseVerseRef(c.Ref)
	if err != nil {
		return err
	}
	verse, err := app.store.GetVerse(app.ctx, surah, ayah)
	if err != nil {
		return err
	}
	if c.JSON {
		data, err := json.MarshalIndent(verse, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if verse.Surah.Name != "" {
		fmt.Printf("%s (%s)\n", verse.Ref(), verse.Surah.Name)
	} else {
		fmt.Println(verse.Ref())
	}
	if verse.Text != "" {
		fmt.Printf("  %s\n", verse.Text)
	}
	for _, tok := range verse.Tokens {
		fmt.Printf("  [%d] %s\n", tok.Index, tok.Text)
		for _, seg := range tok.Segments {
			line := "      " + seg.Type + " " + seg.Form
			if seg.POS != "" {
				line += " (" + seg.POS + ")"
			}
			if seg.Root != "" {
				line += " root=" + seg.Root
			}
			fmt.Println(line)
		}
	}
	return nil
}

// SurahCmd lists the verses of one surah.
type SurahCmd struct {
	Number int64 `arg:"" help:"Surah number"`
}

func (c *SurahCmd) Run(app *appEnv) error {
	verses, err := app.store.GetSurahVerses(app.ctx, c.Number)
	if err != nil {
		return err
	}
	for _, v := range verses {
		fmt.Printf("%d:%d\t%s\n", v.Surah, v.Ayah, v.Text)
	}
	return nil
}

// SurahsCmd lists all surahs with their verse counts.
type SurahsCmd struct{}

func (c *SurahsCmd) Run(app *appEnv) error {
	surahs, err := app.store.ListSurahs(app.ctx)
	if err != nil {
		return err
	}
	for _, s := range surahs {
		fmt.Printf("%3d  %-24s %d verses\n", s.Number, s.Name, s.AyahCount)
	}
	return nil
}

// SearchCmd runs a free-text query with optional field filters.
type SearchCmd struct {
	Query  string   `arg:"" optional:"" help:"Free-text query"`
	Filter []string `help:"Field filter as field=v1,v2 (repeatable)"`
	Limit  int      `default:"50" help:"Maximum number of hits"`
}

func (c *SearchCmd) Run(app *appEnv) error {
	if _, err := app.svc.ReindexAll(app.ctx); err != nil {
		return err
	}

	var filters []model.QueryFilter
	for _, f := range c.Filter {
		field, values, ok := strings.Cut(f, "=")
		if !ok || values == "" {
			return kerr.NewInvalid("filter", "expected field=v1,v2")
		}
		filters = append(filters, model.QueryFilter{
			Field:  field,
			Values: strings.Split(values, ","),
		})
	}

	hits, err := app.index.SearchWithFilters(c.Query, filters, c.Limit)
	if err != nil {
		return err
	}
	views, err := app.store.HydrateSegments(app.ctx, hits)
	if err != nil {
		return err
	}
	for _, v := range views {
		fmt.Printf("%s\t%s\n", v.ID, v.Text)
	}
	fmt.Printf("\n%d hit(s)\n", len(views))
	return nil
}

// InspectCmd shows the consolidated analysis tokens for a verse.
type InspectCmd struct {
	Ref    string `arg:"" help:"Verse reference (surah:ayah)"`
	Strict bool   `help:"Fail when morphology does not cover every word"`
}

func (c *InspectCmd) Run(app *appEnv) error {
	verse, segments, err := app.loadVerseSegments(c.Ref)
	if err != nil {
		return err
	}
	if c.Strict {
		if err := analysis.CheckComplete(verse, segments); err != nil {
			return err
		}
	}
	edges := analysis.DependencyEdges(segments)
	tokens := analysis.Consolidate(verse, segments, edges)
	for _, tok := range tokens {
		fmt.Printf("%s\n", tok.Text)
		if tok.Form != "" {
			fmt.Printf("  Form: %s\n", tok.Form)
		}
		if tok.POS != "" {
			fmt.Printf("  POS: %s\n", tok.POS)
		}
		if tok.Root != "" {
			fmt.Printf("  Root: %s\n", tok.Root)
		}
	}
	return nil
}

// TreeCmd renders the grammar tree for a verse.
type TreeCmd struct {
	Ref string `arg:"" help:"Verse reference (surah:ayah)"`
}

func (c *TreeCmd) Run(app *appEnv) error {
	verse, segments, err := app.loadVerseSegments(c.Ref)
	if err != nil {
		return err
	}
	fmt.Print(render.Tree(*verse, segments))
	return nil
}

// PatternCmd searches verse texts with a letter/diacritic template.
type PatternCmd struct {
	Template string `arg:"" help:"Pattern template as JSON"`
	Limit    int    `default:"50" help:"Maximum number of verses"`
}

func (c *PatternCmd) Run(app *appEnv) error {
	var tmpl pattern.Template
	if err := json.Unmarshal([]byte(c.Template), &tmpl); err != nil {
		return kerr.Invalidf("template", "bad template JSON: %v", err)
	}
	matches, total, err := pattern.SearchVerses(app.ctx, app.store, tmpl, c.Limit)
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Printf("%s\t%d\t%s\n", m.Ref, m.Count, m.Text)
	}
	fmt.Printf("\n%d occurrence(s) in %d verse(s)\n", total, len(matches))
	return nil
}

// PronounsCmd detects pronoun segments in a verse.
type PronounsCmd struct {
	Ref  string `arg:"" help:"Verse reference (surah:ayah)"`
	Save bool   `help:"Store the detected pronouns as verse metadata"`
}

func (c *PronounsCmd) Run(app *appEnv) error {
	surah, ayah, err := parseVerseRef(c.Ref)
	if err != nil {
		return err
	}
	verse, err := app.store.GetVerse(app.ctx, surah, ayah)
	if err != nil {
		return err
	}
	pronouns := analysis.DetectPronouns(verse)
	for _, p := range pronouns {
		fmt.Printf("%s\t%s\t%s\n", p.PronounID, p.Form, p.Features)
	}
	fmt.Printf("\n%d pronoun(s)\n", len(pronouns))

	if c.Save {
		data, err := json.Marshal(pronouns)
		if err != nil {
			return err
		}
		if err := app.store.SetVerseMetadata(app.ctx, verse.Ref(), "pronouns", data); err != nil {
			return err
		}
		fmt.Printf("Saved to metadata for %s\n", verse.Ref())
	}
	return nil
}

// ListCmd lists distinct values seen across all segments.
type ListCmd struct {
	Kind string `arg:"" enum:"roots,patterns,pos" help:"roots, patterns, or pos"`
}

func (c *ListCmd) Run(app *appEnv) error {
	var values []string
	var err error
	switch c.Kind {
	case "roots":
		values, err = app.store.ListUniqueRoots(app.ctx)
	case "patterns":
		values, err = app.store.ListUniquePatterns(app.ctx)
	case "pos":
		values, err = app.store.ListUniquePOS(app.ctx)
	}
	if err != nil {
		return err
	}
	for _, v := range values {
		fmt.Println(v)
	}
	return nil
}

// AnnotateCmd contains annotation operations.
type AnnotateCmd struct {
	Add    AnnotateAddCmd    `cmd:"" help:"Attach an annotation to a target"`
	List   AnnotateListCmd   `cmd:"" help:"List annotations for a target"`
	Delete AnnotateDeleteCmd `cmd:"" help:"Delete an annotation by id"`
}

// AnnotateAddCmd attaches an annotation to a token or segment.
type AnnotateAddCmd struct {
	Target  string `arg:"" help:"Target id (token or segment)"`
	Payload string `arg:"" help:"Annotation payload as JSON"`
	Layer   string `help:"Annotation layer"`
	ID      string `help:"Annotation id (generated when omitted)"`
}

func (c *AnnotateAddCmd) Run(app *appEnv) error {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	a := &model.Annotation{
		ID:       id,
		TargetID: c.Target,
		Layer:    c.Layer,
		Payload:  json.RawMessage(c.Payload),
	}
	if err := app.store.UpsertAnnotation(app.ctx, a); err != nil {
		return err
	}
	fmt.Printf("Annotation stored: %s\n", id)
	return nil
}

// AnnotateListCmd lists annotations for a target.
type AnnotateListCmd struct {
	Target string `arg:"" help:"Target id (token or segment)"`
}

func (c *AnnotateListCmd) Run(app *appEnv) error {
	annotations, err := app.store.ListAnnotations(app.ctx, c.Target)
	if err != nil {
		return err
	}
	for _, a := range annotations {
		fmt.Printf("%s\t%s\t%s\n", a.ID, a.Layer, string(a.Payload))
	}
	return nil
}

// AnnotateDeleteCmd deletes an annotation by id.
type AnnotateDeleteCmd struct {
	ID string `arg:"" help:"Annotation id"`
}

func (c *AnnotateDeleteCmd) Run(app *appEnv) error {
	if err := app.store.DeleteAnnotation(app.ctx, c.ID); err != nil {
		return err
	}
	fmt.Printf("Annotation deleted: %s\n", c.ID)
	return nil
}

// ConnectCmd contains token connection operations.
type ConnectCmd struct {
	Add    ConnectAddCmd    `cmd:"" help:"Connect two tokens on a layer"`
	List   ConnectListCmd   `cmd:"" help:"List connections touching a verse"`
	Delete ConnectDeleteCmd `cmd:"" help:"Delete a connection by id"`
}

// ConnectAddCmd records a connection between two tokens.
type ConnectAddCmd struct {
	From  string `arg:"" help:"Source token id"`
	To    string `arg:"" help:"Target token id"`
	Layer string `help:"Connection layer"`
	Meta  string `help:"Connection metadata"`
	ID    string `help:"Connection id (generated when omitted)"`
}

func (c *ConnectAddCmd) Run(app *appEnv) error {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	conn := &model.Connection{
		ID:        id,
		FromToken: c.From,
		ToToken:   c.To,
		Layer:     c.Layer,
	}
	if c.Meta != "" {
		conn.Meta = json.RawMessage(c.Meta)
	}
	if err := app.store.UpsertConnection(app.ctx, conn); err != nil {
		return err
	}
	fmt.Printf("Connection stored: %s\n", id)
	return nil
}

// ConnectListCmd lists connections touching a verse.
type ConnectListCmd struct {
	Ref string `arg:"" help:"Verse reference (surah:ayah)"`
}

func (c *ConnectListCmd) Run(app *appEnv) error {
	surah, ayah, err := parseVerseRef(c.Ref)
	if err != nil {
		return err
	}
	conns, err := app.store.ListConnectionsForVerse(app.ctx, surah, ayah)
	if err != nil {
		return err
	}
	for _, conn := range conns {
		fmt.Printf("%s\t%s -> %s\t%s\n", conn.ID, conn.FromToken, conn.ToToken, conn.Layer)
	}
	return nil
}

// ConnectDeleteCmd deletes a connection by id.
type ConnectDeleteCmd struct {
	ID string `arg:"" help:"Connection id"`
}

func (c *ConnectDeleteCmd) Run(app *appEnv) error {
	if err := app.store.DeleteConnection(app.ctx, c.ID); err != nil {
		return err
	}
	fmt.Printf("Connection deleted: %s\n", c.ID)
	return nil
}

// StatsCmd shows corpus statistics.
type StatsCmd struct{}

func (c *StatsCmd) Run(app *appEnv) error {
	verses, err := app.store.CountVerses(app.ctx)
	if err != nil {
		return err
	}
	tokenized, err := app.store.CountVersesWithTokens(app.ctx)
	if err != nil {
		return err
	}
	annotations, err := app.store.CountAnnotations(app.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Verses: %d\n", verses)
	fmt.Printf("Verses with tokens: %d\n", tokenized)
	fmt.Printf("Annotations: %d\n", annotations)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *appEnv) error {
	info := sqlite.GetInfo()
	fmt.Printf("kalima %s\n", version)
	fmt.Printf("  SQLite driver: %s (%s)\n", info.DriverName, info.DriverType)
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("kalima"),
		kong.Description("Scripture corpus engine with morphological and syntactic tagging"),
		kong.UsageOnError(),
	)

	logging.Init(logging.Options{
		Level:  CLI.LogLevel,
		Format: CLI.LogFormat,
		Output: os.Stderr,
	})

	app := &appEnv{ctx: context.Background()}
	if kctx.Command() != "version" {
		store, err := storage.Open(CLI.DB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kalima: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		app.store = store
		app.index = index.New()
		app.svc = ingest.New(store, app.index, formats.NewRegistry())
		for _, path := range CLI.Fallback {
			if err := app.svc.AddFallback("", path); err != nil {
				fmt.Fprintf(os.Stderr, "kalima: %v\n", err)
				os.Exit(1)
			}
		}
	}

	if err := kctx.Run(app); err != nil {
		fmt.Fprintf(os.Stderr, "kalima: %v\n", err)
		os.Exit(1)
	}
}
