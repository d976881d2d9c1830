// Package ingest drives corpus files through a normalizer into storage
// and the search index, one record at a time.
package ingest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/core/model"
	"github.com/kalimaproject/kalima/internal/formats"
	"github.com/kalimaproject/kalima/internal/index"
	"github.com/kalimaproject/kalima/internal/logging"
	"github.com/kalimaproject/kalima/internal/storage"
)

// Service owns the storage engine, the search index, and the format
// registry for batch ingestion. Single-threaded: one record at a time,
// synchronously upserted to storage then staged for the index.
type Service struct {
	store     *storage.Store
	index     *index.Index
	registry  *formats.Registry
	fallbacks []*formats.FallbackCache
	log       *slog.Logger
}

// New wires an ingestion service over the given backends.
func New(store *storage.Store, ix *index.Index, registry *formats.Registry) *Service {
	return &Service{
		store:    store,
		index:    ix,
		registry: registry,
		log:      logging.For("ingest"),
	}
}

// AddFallback registers a fallback corpus file. The file is parsed
// lazily on first lookup, once per service lifetime, and held in
// memory keyed by verse coordinate. An empty format autodetects.
func (s *Service) AddFallback(format, path string) error {
	var norm formats.Normalizer
	var err error
	if format == "" {
		norm, err = s.registry.Detect(path)
	} else {
		norm, err = s.registry.Get(format)
	}
	if err != nil {
		return err
	}
	s.fallbacks = append(s.fallbacks, formats.NewFallbackCache(norm, path))
	return nil
}

// FallbackVerse looks a verse up in the registered fallback corpora,
// first hit wins. Returns nil with no error when no corpus has it.
func (s *Service) FallbackVerse(surah, ayah int64) (*model.Verse, error) {
	for _, fc := range s.fallbacks {
		v, err := fc.Verse(surah, ayah)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

// Stats summarizes one ingestion run.
type Stats struct {
	Format   string `json:"format"`
	File     string `json:"file"`
	Hash     string `json:"hash"`
	Verses   int    `json:"verses"`
	Tokens   int    `json:"tokens"`
	Segments int    `json:"segments"`
}

// provenance is what gets recorded under the run's research-data key.
type provenance struct {
	Stats
	IngestedAt time.Time `json:"ingested_at"`
}

// File ingests one corpus file with the named format; an empty format
// name autodetects from the path. The index commits once at the end, so
// searches see either the whole run or none of it.
func (s *Service) File(ctx context.Context, format, path string) (*Stats, error) {
	var norm formats.Normalizer
	var err error
	if format == "" {
		norm, err = s.registry.Detect(path)
	} else {
		norm, err = s.registry.Get(format)
	}
	if err != nil {
		return nil, err
	}

	rc, err := formats.OpenInput(path)
	if err != nil {
		return nil, err
	}
	hasher := blake3.New()
	verses, parseErr := norm.Parse(io.TeeReader(rc, hasher))
	// Drain so the hash covers the whole file even if the parser
	// stopped early.
	io.Copy(hasher, rc)
	rc.Close()
	if parseErr != nil {
		return nil, parseErr
	}

	stats := &Stats{
		Format: norm.Name(),
		File:   filepath.Base(path),
		Hash:   hex.EncodeToString(hasher.Sum(nil)),
	}
	for i := range verses {
		if err := s.Record(ctx, &verses[i], stats); err != nil {
			return nil, err
		}
	}
	s.index.Commit()

	if err := s.recordProvenance(ctx, stats); err != nil {
		return nil, err
	}
	s.log.Info("ingested corpus file",
		"format", stats.Format, "file", stats.File,
		"verses", stats.Verses, "tokens", stats.Tokens, "segments", stats.Segments)
	return stats, nil
}

// Record upserts one verse record: surah name, verse text, then each
// token to storage and the index staging area.
func (s *Service) Record(ctx context.Context, verse *model.Verse, stats *Stats) error {
	if verse.Surah.Number < 1 || verse.Ayah < 1 {
		return kerr.Invalidf("verse record", "bad coordinate %d:%d", verse.Surah.Number, verse.Ayah)
	}
	if verse.Surah.Name != "" {
		if err := s.store.SetSurahName(ctx, verse.Surah.Number, verse.Surah.Name); err != nil {
			return err
		}
	}
	if verse.Text != "" {
		if err := s.store.SetVerseText(ctx, verse.Surah.Number, verse.Ayah, verse.Text); err != nil {
			return err
		}
	}

	ref := verse.Ref()
	for _, tok := range verse.Tokens {
		// The indexed document text prefers the verse text so free-text
		// search matches verse context, not just the surface form.
		docText := verse.Text
		if docText == "" {
			docText = tok.Text
		}
		// Storage keys tokens by the deterministic coordinate id, so the
		// index document must carry the same id or hits cannot hydrate.
		view := &model.SegmentView{
			ID:         model.TokenID(verse.Surah.Number, verse.Ayah, tok.Index),
			VerseRef:   ref,
			TokenIndex: tok.Index,
			Text:       docText,
			Segments:   tok.Segments,
		}
		if err := s.store.UpsertSegment(ctx, view); err != nil {
			return err
		}
		s.index.IndexDocument(view)
		if stats != nil {
			stats.Tokens++
			stats.Segments += len(tok.Segments)
		}
	}
	if stats != nil {
		stats.Verses++
	}
	return nil
}

// ReindexAll rebuilds the in-memory search index from storage and
// publishes it. Returns the number of indexed documents.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	const page = 256
	docs := 0
	for start := int64(0); ; start += page {
		summaries, err := s.store.ListVerses(ctx, start, page)
		if err != nil {
			return docs, err
		}
		for _, vs := range summaries {
			verse, err := s.store.GetVerse(ctx, vs.Surah, vs.Ayah)
			if err != nil {
				if kerr.IsNotFound(err) {
					continue
				}
				return docs, err
			}
			ref := verse.Ref()
			for _, tok := range verse.Tokens {
				docText := verse.Text
				if docText == "" {
					docText = tok.Text
				}
				s.index.IndexDocument(&model.SegmentView{
					ID:         tok.ID,
					VerseRef:   ref,
					TokenIndex: tok.Index,
					Text:       docText,
					Segments:   tok.Segments,
				})
				docs++
			}
		}
		if len(summaries) < page {
			break
		}
	}
	s.index.Commit()
	s.log.Debug("reindexed corpus", "documents", docs)
	return docs, nil
}

func (s *Service) recordProvenance(ctx context.Context, stats *Stats) error {
	key := "ingest:" + stats.Format + ":" + stats.File
	value, err := json.Marshal(provenance{Stats: *stats, IngestedAt: time.Now().UTC()})
	if err != nil {
		return kerr.Invalidf("provenance", "marshal: %v", err)
	}
	return s.store.SetResearchData(ctx, key, value)
}
