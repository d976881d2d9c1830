// Package storage persists the canonical segment model to SQLite and
// hydrates it back. Every write is one conflict-safe statement, so
// repeated ingestion is idempotent and a mid-batch failure leaves
// already-committed rows intact.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/core/model"
	"github.com/kalimaproject/kalima/core/sqlite"
	"github.com/kalimaproject/kalima/internal/logging"
)

// Store is the relational storage engine. Safe for concurrent use; the
// underlying pool serializes writes.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, kerr.Storage("open", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-open database, applying the schema.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schemaInit); err != nil {
		return nil, kerr.Storage("migrate", err)
	}
	return &Store{db: db, log: logging.For("storage")}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for callers that need raw access (stats, vacuum).
func (s *Store) DB() *sql.DB { return s.db }

// nullStr maps the empty string to NULL so unset attributes stay absent.
func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// nullInt maps zero to NULL for optional 1-based indices.
func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

// UpsertSegment persists one token with its segments: surah, verse,
// token, then each segment row, each independently conflict-safe.
func (s *Store) UpsertSegment(ctx context.Context, view *model.SegmentView) error {
	loc, err := model.ParseLocation(view.VerseRef)
	if err != nil {
		return err
	}
	surah, ayah := loc.Surah, loc.Ayah

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO surahs (number, name) VALUES (?, ?)`,
		surah, ""); err != nil {
		return kerr.Storage("upsert surah", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO verses (surah_number, ayah_number) VALUES (?, ?)
		 ON CONFLICT(surah_number, ayah_number) DO NOTHING`,
		surah, ayah); err != nil {
		return kerr.Storage("upsert verse", err)
	}

	tokenID := model.TokenID(surah, ayah, view.TokenIndex)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (id, verse_surah, verse_ayah, token_index, text)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET text=excluded.text`,
		tokenID, surah, ayah, view.TokenIndex, view.Text); err != nil {
		return kerr.Storage("upsert token", err)
	}

	for i, seg := range view.Segments {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO segments (
				id, token_id, segment_index, type, form, root, lemma, pattern, pos, verb_form,
				voice, mood, tense, aspect, person, number, gender, case_value,
				dependency_rel, role, derived_noun_type, state, features, word_index
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				token_id=excluded.token_id,
				segment_index=excluded.segment_index,
				type=excluded.type,
				form=excluded.form,
				root=excluded.root,
				lemma=excluded.lemma,
				pattern=excluded.pattern,
				pos=excluded.pos,
				verb_form=excluded.verb_form,
				voice=excluded.voice,
				mood=excluded.mood,
				tense=excluded.tense,
				aspect=excluded.aspect,
				person=excluded.person,
				number=excluded.number,
				gender=excluded.gender,
				case_value=excluded.case_value,
				dependency_rel=excluded.dependency_rel,
				role=excluded.role,
				derived_noun_type=excluded.derived_noun_type,
				state=excluded.state,
				features=excluded.features,
				word_index=excluded.word_index`,
			seg.ID, tokenID, i, seg.Type, seg.Form,
			nullStr(seg.Root), nullStr(seg.Lemma), nullStr(seg.Pattern),
			nullStr(seg.POS), nullStr(seg.VerbForm), nullStr(seg.Voice),
			nullStr(seg.Mood), nullStr(seg.Tense), nullStr(seg.Aspect),
			nullStr(seg.Person), nullStr(seg.Number), nullStr(seg.Gender),
			nullStr(seg.Case), nullStr(seg.DependencyRel), nullStr(seg.Role),
			nullStr(seg.DerivedNounType), nullStr(seg.State),
			nullStr(seg.Features), nullInt(seg.WordIndex)); err != nil {
			return kerr.Storage("upsert segment", err)
		}
	}
	s.log.Debug("upserted segment view", "token", tokenID, "segments", len(view.Segments))
	return nil
}

var segmentCols = []string{
	"id", "type", "form", "root", "lemma", "pattern", "pos", "verb_form",
	"voice", "mood", "tense", "aspect", "person", "number", "gender",
	"case_value", "dependency_rel", "role", "derived_noun_type", "state",
	"features", "word_index",
}

// segmentColumnList joins the segment column names, each with the given
// table alias prefix.
func segmentColumnList(prefix string) string {
	if prefix == "" {
		return strings.Join(segmentCols, ", ")
	}
	return prefix + strings.Join(segmentCols, ", "+prefix)
}

type segScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row segScanner) (model.Segment, error) {
	var seg model.Segment
	var root, lemma, pattern, pos, verbForm, voice, mood, tense, aspect,
		person, number, gender, caseVal, depRel, role, dnt, state,
		features sql.NullString
	var typ, form sql.NullString
	var wordIndex sql.NullInt64
	err := row.Scan(&seg.ID, &typ, &form, &root, &lemma, &pattern, &pos,
		&verbForm, &voice, &mood, &tense, &aspect, &person, &number,
		&gender, &caseVal, &depRel, &role, &dnt, &state, &features,
		&wordIndex)
	if err != nil {
		return seg, err
	}
	seg.Type = typ.String
	seg.Form = form.String
	seg.Root = root.String
	seg.Lemma = lemma.String
	seg.Pattern = pattern.String
	seg.POS = pos.String
	seg.VerbForm = verbForm.String
	seg.Voice = voice.String
	seg.Mood = mood.String
	seg.Tense = tense.String
	seg.Aspect = aspect.String
	seg.Person = person.String
	seg.Number = number.String
	seg.Gender = gender.String
	seg.Case = caseVal.String
	seg.DependencyRel = depRel.String
	seg.Role = role.String
	seg.DerivedNounType = dnt.String
	seg.State = state.String
	seg.Features = features.String
	seg.WordIndex = int(wordIndex.Int64)
	return seg, nil
}

// GetSegment hydrates one token id into its denormalized view.
func (s *Store) GetSegment(ctx context.Context, id string) (*model.SegmentView, error) {
	var surah, ayah int64
	var tokenIndex int
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT verse_surah, verse_ayah, token_index, text FROM tokens WHERE id = ?`,
		id).Scan(&surah, &ayah, &tokenIndex, &text)
	if err == sql.ErrNoRows {
		return nil, kerr.NewNotFound("token", id)
	}
	if err != nil {
		return nil, kerr.Storage("get segment", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumnList("")+` FROM segments WHERE token_id = ? ORDER BY segment_index`, id)
	if err != nil {
		return nil, kerr.Storage("get segment", err)
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, kerr.Storage("scan segment", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, kerr.Storage("get segment", err)
	}

	view := &model.SegmentView{
		ID:         id,
		VerseRef:   model.VerseRef(surah, ayah),
		TokenIndex: tokenIndex,
		Text:       text,
		Segments:   segments,
	}
	anns, err := s.ListAnnotations(ctx, id)
	if err != nil {
		return nil, err
	}
	view.Annotations = anns
	return view, nil
}

// HydrateSegments resolves ranked hits into views, preserving hit order.
// Ids that no longer resolve are dropped silently.
func (s *Store) HydrateSegments(ctx context.Context, hits []model.SearchHit) ([]model.SegmentView, error) {
	out := make([]model.SegmentView, 0, len(hits))
	for _, hit := range hits {
		view, err := s.GetSegment(ctx, hit.ID)
		if kerr.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

// GetVerse rebuilds the nested verse/token/segment tree. Falls back to
// the longest token text when no canonical verse text is stored.
func (s *Store) GetVerse(ctx context.Context, surah, ayah int64) (*model.Verse, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM verses WHERE surah_number = ? AND ayah_number = ?`,
		surah, ayah).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, kerr.NewNotFound("verse", model.VerseRef(surah, ayah))
	}
	if err != nil {
		return nil, kerr.Storage("get verse", err)
	}

	var name sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT name FROM surahs WHERE number = ?`, surah).Scan(&name); err != nil && err != sql.ErrNoRows {
		return nil, kerr.Storage("get verse", err)
	}

	var text sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT text FROM verse_texts WHERE surah_number = ? AND ayah_number = ?`,
		surah, ayah).Scan(&text); err != nil && err != sql.ErrNoRows {
		return nil, kerr.Storage("get verse", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.token_index, t.text, `+segmentColumnList("s.")+`
		 FROM tokens t
		 LEFT JOIN segments s ON s.token_id = t.id
		 WHERE t.verse_surah = ? AND t.verse_ayah = ?
		 ORDER BY t.token_index, s.segment_index`,
		surah, ayah)
	if err != nil {
		return nil, kerr.Storage("get verse", err)
	}
	defer rows.Close()

	verse := &model.Verse{
		Surah: model.SurahInfo{Number: surah, Name: name.String},
		Ayah:  ayah,
	}
	byIndex := map[int]*model.Token{}
	var order []int
	for rows.Next() {
		var tokenIndex int
		var tokenText string
		var segID sql.NullString
		var typ, form, root, lemma, pattern, pos, verbForm, voice, mood,
			tense, aspect, person, number, gender, caseVal, depRel, role,
			dnt, state, features sql.NullString
		var wordIndex sql.NullInt64
		if err := rows.Scan(&tokenIndex, &tokenText, &segID, &typ, &form,
			&root, &lemma, &pattern, &pos, &verbForm, &voice, &mood,
			&tense, &aspect, &person, &number, &gender, &caseVal,
			&depRel, &role, &dnt, &state, &features, &wordIndex); err != nil {
			return nil, kerr.Storage("scan verse row", err)
		}
		tok, ok := byIndex[tokenIndex]
		if !ok {
			tok = &model.Token{
				ID:    model.TokenID(surah, ayah, tokenIndex),
				Index: tokenIndex,
				Text:  tokenText,
			}
			byIndex[tokenIndex] = tok
			order = append(order, tokenIndex)
		}
		if segID.Valid && segID.String != "" {
			tok.Segments = append(tok.Segments, model.Segment{
				ID: segID.String, Type: typ.String, Form: form.String,
				Root: root.String, Lemma: lemma.String, Pattern: pattern.String,
				POS: pos.String, VerbForm: verbForm.String, Voice: voice.String,
				Mood: mood.String, Tense: tense.String, Aspect: aspect.String,
				Person: person.String, Number: number.String, Gender: gender.String,
				Case: caseVal.String, DependencyRel: depRel.String, Role: role.String,
				DerivedNounType: dnt.String, State: state.String,
				Features: features.String, WordIndex: int(wordIndex.Int64),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, kerr.Storage("get verse", err)
	}
	for _, idx := range order {
		verse.Tokens = append(verse.Tokens, *byIndex[idx])
	}

	verse.Text = text.String
	if verse.Text == "" {
		// No clean verse text from any source; the longest token text is
		// the best available stand-in.
		for _, tok := range verse.Tokens {
			if len(tok.Text) > len(verse.Text) {
				verse.Text = tok.Text
			}
		}
	}
	return verse, nil
}

// GetVerseByIndex looks up a verse by its absolute ordinal position in
// (surah, ayah) order, 0-based.
func (s *Store) GetVerseByIndex(ctx context.Context, index int64) (*model.Verse, error) {
	var surah, ayah int64
	err := s.db.QueryRowContext(ctx,
		`SELECT surah_number, ayah_number FROM verses
		 ORDER BY surah_number, ayah_number LIMIT 1 OFFSET ?`,
		index).Scan(&surah, &ayah)
	if err == sql.ErrNoRows {
		return nil, kerr.NewNotFound("verse", "")
	}
	if err != nil {
		return nil, kerr.Storage("get verse by index", err)
	}
	return s.GetVerse(ctx, surah, ayah)
}

// VerseSummary is a verse line for listings: coordinate, names, text.
type VerseSummary struct {
	Surah     int64  `json:"surah"`
	SurahName string `json:"surah_name"`
	Ayah      int64  `json:"ayah"`
	Text      string `json:"text"`
}

// ListVerses pages through all verses in (surah, ayah) order.
func (s *Store) ListVerses(ctx context.Context, start, limit int64) ([]VerseSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.surah_number, v.ayah_number, vt.text, su.name
		 FROM verses v
		 LEFT JOIN verse_texts vt ON v.surah_number = vt.surah_number AND v.ayah_number = vt.ayah_number
		 LEFT JOIN surahs su ON v.surah_number = su.number
		 ORDER BY v.surah_number, v.ayah_number
		 LIMIT ? OFFSET ?`,
		limit, start)
	if err != nil {
		return nil, kerr.Storage("list verses", err)
	}
	defer rows.Close()

	var out []VerseSummary
	for rows.Next() {
		var v VerseSummary
		var text, name sql.NullString
		if err := rows.Scan(&v.Surah, &v.Ayah, &text, &name); err != nil {
			return nil, kerr.Storage("scan verse", err)
		}
		v.Text = text.String
		v.SurahName = name.String
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetSurahVerses lists all verses of one surah with their texts.
func (s *Store) GetSurahVerses(ctx context.Context, surah int64) ([]VerseSummary, error) {
	var name sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT name FROM surahs WHERE number = ?`, surah).Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return nil, kerr.NewNotFound("surah", model.VerseRef(surah, 0))
		}
		return nil, kerr.Storage("get surah", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT v.ayah_number, vt.text
		 FROM verses v
		 LEFT JOIN verse_texts vt ON v.surah_number = vt.surah_number AND v.ayah_number = vt.ayah_number
		 WHERE v.surah_number = ?
		 ORDER BY v.ayah_number`,
		surah)
	if err != nil {
		return nil, kerr.Storage("get surah verses", err)
	}
	defer rows.Close()

	var out []VerseSummary
	for rows.Next() {
		v := VerseSummary{Surah: surah, SurahName: name.String}
		var text sql.NullString
		if err := rows.Scan(&v.Ayah, &text); err != nil {
			return nil, kerr.Storage("scan verse", err)
		}
		v.Text = text.String
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListSurahs lists every surah with its verse count.
func (s *Store) ListSurahs(ctx context.Context) ([]model.SurahSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.number, s.name, COUNT(v.ayah_number)
		 FROM surahs s
		 LEFT JOIN verses v ON v.surah_number = s.number
		 GROUP BY s.number, s.name
		 ORDER BY s.number`)
	if err != nil {
		return nil, kerr.Storage("list surahs", err)
	}
	defer rows.Close()

	var out []model.SurahSummary
	for rows.Next() {
		var su model.SurahSummary
		var name sql.NullString
		if err := rows.Scan(&su.Number, &name, &su.AyahCount); err != nil {
			return nil, kerr.Storage("scan surah", err)
		}
		su.Name = name.String
		out = append(out, su)
	}
	return out, rows.Err()
}

// SetSurahName records a surah's name.
func (s *Store) SetSurahName(ctx context.Context, number int64, name string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO surahs (number, name) VALUES (?, ?)
		 ON CONFLICT(number) DO UPDATE SET name=excluded.name`,
		number, name); err != nil {
		return kerr.Storage("set surah name", err)
	}
	return nil
}

// SetVerseText records the canonical text of a verse without touching
// its token rows.
func (s *Store) SetVerseText(ctx context.Context, surah, ayah int64, text string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO verses (surah_number, ayah_number) VALUES (?, ?)
		 ON CONFLICT(surah_number, ayah_number) DO NOTHING`,
		surah, ayah); err != nil {
		return kerr.Storage("set verse text", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO verse_texts (surah_number, ayah_number, text) VALUES (?, ?, ?)
		 ON CONFLICT(surah_number, ayah_number) DO UPDATE SET text=excluded.text`,
		surah, ayah, text); err != nil {
		return kerr.Storage("set verse text", err)
	}
	return nil
}

// VerseSegment is one segment joined with its token context, ordered by
// token position. The morphology form is the display text; the token
// text is kept for alignment.
type VerseSegment struct {
	model.Segment
	TokenIndex int    `json:"token_index"`
	TokenText  string `json:"token_text"`
}

// SegmentsFromVerse flattens a hydrated verse into segment rows without
// touching the database, for verses served from a fallback corpus.
func SegmentsFromVerse(v *model.Verse) []VerseSegment {
	var out []VerseSegment
	for _, tok := range v.Tokens {
		for _, seg := range tok.Segments {
			vs := VerseSegment{Segment: seg, TokenIndex: tok.Index, TokenText: tok.Text}
			if vs.WordIndex == 0 {
				vs.WordIndex = tok.Index + 1
			}
			out = append(out, vs)
		}
	}
	return out
}

// GetVerseSegments lists a verse's segments in token order.
func (s *Store) GetVerseSegments(ctx context.Context, surah, ayah int64) ([]VerseSegment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumnList("s.")+`, t.token_index, t.text
		 FROM segments s
		 JOIN tokens t ON s.token_id = t.id
		 WHERE t.verse_surah = ? AND t.verse_ayah = ?
		 ORDER BY t.token_index, s.segment_index`,
		surah, ayah)
	if err != nil {
		return nil, kerr.Storage("get verse segments", err)
	}
	defer rows.Close()

	var out []VerseSegment
	for rows.Next() {
		var vs VerseSegment
		var typ, form, root, lemma, pattern, pos, verbForm, voice, mood,
			tense, aspect, person, number, gender, caseVal, depRel, role,
			dnt, state, features sql.NullString
		var wordIndex sql.NullInt64
		if err := rows.Scan(&vs.ID, &typ, &form, &root, &lemma, &pattern,
			&pos, &verbForm, &voice, &mood, &tense, &aspect, &person,
			&number, &gender, &caseVal, &depRel, &role, &dnt, &state,
			&features, &wordIndex, &vs.TokenIndex, &vs.TokenText); err != nil {
			return nil, kerr.Storage("scan verse segment", err)
		}
		vs.Type = typ.String
		vs.Form = form.String
		vs.Root = root.String
		vs.Lemma = lemma.String
		vs.Pattern = pattern.String
		vs.POS = pos.String
		vs.VerbForm = verbForm.String
		vs.Voice = voice.String
		vs.Mood = mood.String
		vs.Tense = tense.String
		vs.Aspect = aspect.String
		vs.Person = person.String
		vs.Number = number.String
		vs.Gender = gender.String
		vs.Case = caseVal.String
		vs.DependencyRel = depRel.String
		vs.Role = role.String
		vs.DerivedNounType = dnt.String
		vs.State = state.String
		vs.Features = features.String
		vs.WordIndex = int(wordIndex.Int64)
		if vs.WordIndex == 0 {
			vs.WordIndex = vs.TokenIndex + 1
		}
		out = append(out, vs)
	}
	return out, rows.Err()
}

func (s *Store) listDistinct(ctx context.Context, column, op string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT `+column+` FROM segments
		 WHERE `+column+` IS NOT NULL AND `+column+` != ''
		 ORDER BY `+column)
	if err != nil {
		return nil, kerr.Storage(op, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, kerr.Storage(op, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListUniqueRoots lists every distinct root in the corpus.
func (s *Store) ListUniqueRoots(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, "root", "list roots")
}

// ListUniquePatterns lists every distinct morphological pattern.
func (s *Store) ListUniquePatterns(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, "pattern", "list patterns")
}

// ListUniquePOS lists every distinct part-of-speech tag.
func (s *Store) ListUniquePOS(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, "pos", "list pos")
}

// UpsertAnnotation writes or replaces one annotation by id.
func (s *Store) UpsertAnnotation(ctx context.Context, a *model.Annotation) error {
	payload := a.Payload
	if payload == nil {
		payload = json.RawMessage(`null`)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO annotations (id, target_id, layer, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			target_id=excluded.target_id,
			layer=excluded.layer,
			payload=excluded.payload`,
		a.ID, a.TargetID, a.Layer, string(payload)); err != nil {
		return kerr.Storage("upsert annotation", err)
	}
	return nil
}

// ListAnnotations lists the annotations attached to a target id.
func (s *Store) ListAnnotations(ctx context.Context, targetID string) ([]model.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_id, layer, payload FROM annotations
		 WHERE target_id = ? ORDER BY created_at, id`,
		targetID)
	if err != nil {
		return nil, kerr.Storage("list annotations", err)
	}
	defer rows.Close()

	var out []model.Annotation
	for rows.Next() {
		var a model.Annotation
		var layer sql.NullString
		var payload string
		if err := rows.Scan(&a.ID, &a.TargetID, &layer, &payload); err != nil {
			return nil, kerr.Storage("scan annotation", err)
		}
		a.Layer = layer.String
		a.Payload = json.RawMessage(payload)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAnnotation removes one annotation by id.
func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM annotations WHERE id = ?`, id); err != nil {
		return kerr.Storage("delete annotation", err)
	}
	return nil
}

// UpsertConnection writes or replaces one typed edge by id.
func (s *Store) UpsertConnection(ctx context.Context, c *model.Connection) error {
	meta := c.Meta
	if meta == nil {
		meta = json.RawMessage(`null`)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO connections (id, from_token, to_token, layer, meta)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			from_token=excluded.from_token,
			to_token=excluded.to_token,
			layer=excluded.layer,
			meta=excluded.meta`,
		c.ID, c.FromToken, c.ToToken, c.Layer, string(meta)); err != nil {
		return kerr.Storage("upsert connection", err)
	}
	return nil
}

// ListConnectionsForVerse lists edges with either endpoint in the verse.
func (s *Store) ListConnectionsForVerse(ctx context.Context, surah, ayah int64) ([]model.Connection, error) {
	prefix := model.VerseRef(surah, ayah) + ":%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_token, to_token, layer, meta FROM connections
		 WHERE from_token LIKE ? OR to_token LIKE ?
		 ORDER BY id`,
		prefix, prefix)
	if err != nil {
		return nil, kerr.Storage("list connections", err)
	}
	defer rows.Close()

	var out []model.Connection
	for rows.Next() {
		var c model.Connection
		var layer, meta sql.NullString
		if err := rows.Scan(&c.ID, &c.FromToken, &c.ToToken, &layer, &meta); err != nil {
			return nil, kerr.Storage("scan connection", err)
		}
		c.Layer = layer.String
		if meta.Valid {
			c.Meta = json.RawMessage(meta.String)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteConnection removes one edge by id.
func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM connections WHERE id = ?`, id); err != nil {
		return kerr.Storage("delete connection", err)
	}
	return nil
}

// Metadata fields are a closed set; each maps to its own JSON column.
var metadataFields = map[string]bool{
	"pronouns":     true,
	"hypotheses":   true,
	"translations": true,
}

// GetVerseMetadata reads one metadata array for a verse. Missing rows
// and NULL columns yield an empty array.
func (s *Store) GetVerseMetadata(ctx context.Context, verseRef, field string) (json.RawMessage, error) {
	if !metadataFields[field] {
		return nil, kerr.Invalidf("metadata field", "unknown field %q", field)
	}
	var data sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT `+field+` FROM verse_metadata WHERE verse_ref = ?`,
		verseRef).Scan(&data)
	if err == sql.ErrNoRows || (err == nil && !data.Valid) {
		return json.RawMessage(`[]`), nil
	}
	if err != nil {
		return nil, kerr.Storage("get verse metadata", err)
	}
	return json.RawMessage(data.String), nil
}

// SetVerseMetadata replaces one metadata array for a verse. The value
// must be a JSON array.
func (s *Store) SetVerseMetadata(ctx context.Context, verseRef, field string, data json.RawMessage) error {
	if !metadataFields[field] {
		return kerr.Invalidf("metadata field", "unknown field %q", field)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return kerr.Invalidf("metadata value", "field %q requires a JSON array: %v", field, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO verse_metadata (verse_ref, `+field+`) VALUES (?, ?)
		 ON CONFLICT(verse_ref) DO UPDATE SET `+field+`=excluded.`+field,
		verseRef, string(data)); err != nil {
		return kerr.Storage("set verse metadata", err)
	}
	return nil
}

// GetResearchData reads one global research artifact by key.
func (s *Store) GetResearchData(ctx context.Context, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM research_data WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, kerr.NewNotFound("research data", key)
	}
	if err != nil {
		return nil, kerr.Storage("get research data", err)
	}
	return json.RawMessage(value), nil
}

// SetResearchData writes one global research artifact.
func (s *Store) SetResearchData(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return kerr.Invalidf("research data", "key %q: value is not valid JSON", key)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO research_data (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP`,
		key, string(value)); err != nil {
		return kerr.Storage("set research data", err)
	}
	return nil
}

func (s *Store) countScalar(ctx context.Context, query, op string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, kerr.Storage(op, err)
	}
	return n, nil
}

// CountVerses returns the number of stored verses.
func (s *Store) CountVerses(ctx context.Context) (int64, error) {
	return s.countScalar(ctx, `SELECT COUNT(*) FROM verses`, "count verses")
}

// CountAnnotations returns the number of stored annotations.
func (s *Store) CountAnnotations(ctx context.Context) (int64, error) {
	return s.countScalar(ctx, `SELECT COUNT(*) FROM annotations`, "count annotations")
}

// CountVersesWithTokens returns the number of verses that have at least
// one token row.
func (s *Store) CountVersesWithTokens(ctx context.Context) (int64, error) {
	return s.countScalar(ctx,
		`SELECT COUNT(DISTINCT verse_surah || ':' || verse_ayah) FROM tokens`,
		"count verses with tokens")
}

// VerseText pairs a verse reference with its canonical text.
type VerseText struct {
	Ref  string `json:"ref"`
	Text string `json:"text"`
}

// GetAllVerseTexts returns up to limit non-empty verse texts in corpus
// order, for direct text scans. A non-positive limit returns all texts.
func (s *Store) GetAllVerseTexts(ctx context.Context, limit int) ([]VerseText, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT surah_number, ayah_number, text FROM verse_texts
		 WHERE text IS NOT NULL AND text != ''
		 ORDER BY surah_number, ayah_number
		 LIMIT ?`,
		limit)
	if err != nil {
		return nil, kerr.Storage("get all verse texts", err)
	}
	defer rows.Close()

	var out []VerseText
	for rows.Next() {
		var surah, ayah int64
		var text string
		if err := rows.Scan(&surah, &ayah, &text); err != nil {
			return nil, kerr.Storage("scan verse text", err)
		}
		out = append(out, VerseText{Ref: model.VerseRef(surah, ayah), Text: text})
	}
	return out, rows.Err()
}
