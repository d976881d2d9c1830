package storage

// schemaInit bootstraps the relational layout. Every statement is
// idempotent so opening an existing database is a no-op.
const schemaInit = `
CREATE TABLE IF NOT EXISTS surahs (
    number INTEGER PRIMARY KEY,
    name TEXT
);

CREATE TABLE IF NOT EXISTS verses (
    surah_number INTEGER NOT NULL,
    ayah_number INTEGER NOT NULL,
    PRIMARY KEY (surah_number, ayah_number)
);

-- Verse text lives apart from tokens so it can be corrected by a
-- backfill source without touching token rows.
CREATE TABLE IF NOT EXISTS verse_texts (
    surah_number INTEGER NOT NULL,
    ayah_number INTEGER NOT NULL,
    text TEXT,
    PRIMARY KEY (surah_number, ayah_number)
);

CREATE TABLE IF NOT EXISTS tokens (
    id TEXT PRIMARY KEY,
    verse_surah INTEGER NOT NULL,
    verse_ayah INTEGER NOT NULL,
    token_index INTEGER NOT NULL,
    text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tokens_verse ON tokens(verse_surah, verse_ayah);

CREATE TABLE IF NOT EXISTS segments (
    id TEXT PRIMARY KEY,
    token_id TEXT NOT NULL,
    segment_index INTEGER NOT NULL DEFAULT 0,
    type TEXT,
    form TEXT,
    root TEXT,
    lemma TEXT,
    pattern TEXT,
    pos TEXT,
    verb_form TEXT,
    voice TEXT,
    mood TEXT,
    tense TEXT,
    aspect TEXT,
    person TEXT,
    number TEXT,
    gender TEXT,
    case_value TEXT,
    dependency_rel TEXT,
    role TEXT,
    derived_noun_type TEXT,
    state TEXT,
    features TEXT,
    word_index INTEGER
);

CREATE INDEX IF NOT EXISTS idx_segments_token ON segments(token_id);
CREATE INDEX IF NOT EXISTS idx_segments_root ON segments(root);
CREATE INDEX IF NOT EXISTS idx_segments_lemma ON segments(lemma);
CREATE INDEX IF NOT EXISTS idx_segments_pos ON segments(pos);
CREATE INDEX IF NOT EXISTS idx_segments_pattern ON segments(pattern);

CREATE TABLE IF NOT EXISTS annotations (
    id TEXT PRIMARY KEY,
    target_id TEXT NOT NULL,
    layer TEXT,
    payload JSON NOT NULL,
    created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_annotations_target ON annotations(target_id);

CREATE TABLE IF NOT EXISTS connections (
    id TEXT PRIMARY KEY,
    from_token TEXT NOT NULL,
    to_token TEXT NOT NULL,
    layer TEXT,
    meta JSON
);

CREATE INDEX IF NOT EXISTS idx_connections_from ON connections(from_token);
CREATE INDEX IF NOT EXISTS idx_connections_to ON connections(to_token);

CREATE TABLE IF NOT EXISTS verse_metadata (
    verse_ref TEXT PRIMARY KEY,
    pronouns JSON,
    hypotheses JSON,
    translations JSON
);

CREATE TABLE IF NOT EXISTS research_data (
    key TEXT PRIMARY KEY,
    value JSON NOT NULL,
    updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`
