// Package index is an in-memory multi-field inverted index over segment
// views. One document per token; writes stage under a lock and become
// visible to readers only at Commit, which publishes a fresh snapshot.
package index

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/kalimaproject/kalima/core/model"
	"github.com/kalimaproject/kalima/internal/logging"
)

// document is the indexed shape of one token: exact terms per field.
type document struct {
	id    string
	terms [numFields][]string
}

// snapshot is an immutable published view. postings: field → term →
// doc id → term frequency.
type snapshot struct {
	docs     map[string]*document
	postings [numFields]map[string]map[string]int
}

func buildSnapshot(docs map[string]*document) *snapshot {
	snap := &snapshot{docs: docs}
	for f := range snap.postings {
		snap.postings[f] = make(map[string]map[string]int)
	}
	for id, doc := range docs {
		for f, terms := range doc.terms {
			for _, term := range terms {
				byDoc := snap.postings[f][term]
				if byDoc == nil {
					byDoc = make(map[string]int)
					snap.postings[f][term] = byDoc
				}
				byDoc[id]++
			}
		}
	}
	return snap
}

// Index has one serialized writer and any number of concurrent readers.
type Index struct {
	mu        sync.RWMutex
	staged    map[string]*document // committed + uncommitted writes
	published *snapshot
	log       *slog.Logger
}

// New returns an empty index with an empty published snapshot.
func New() *Index {
	return &Index{
		staged:    make(map[string]*document),
		published: buildSnapshot(map[string]*document{}),
		log:       logging.For("index"),
	}
}

// tokenize splits free text into lowercased whitespace-delimited terms.
// Lowercasing is a no-op for Arabic script and folds Latin tags.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	return fields
}

// term normalizes one exact attribute value.
func term(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// IndexDocument stages one token document, replacing any prior document
// with the same id. Not visible to readers until Commit.
func (ix *Index) IndexDocument(view *model.SegmentView) {
	doc := &document{id: view.ID}
	doc.terms[FieldText] = tokenize(view.Text)
	for _, seg := range view.Segments {
		add := func(f Field, v string) {
			if v != "" {
				doc.terms[f] = append(doc.terms[f], term(v))
			}
		}
		add(FieldRoots, seg.Root)
		add(FieldLemmas, seg.Lemma)
		add(FieldPOS, seg.POS)
		add(FieldPattern, seg.Pattern)
		add(FieldVerbForm, seg.VerbForm)
		add(FieldGender, seg.Gender)
		add(FieldNumber, seg.Number)
		add(FieldCase, seg.Case)
		add(FieldVoice, seg.Voice)
		add(FieldMood, seg.Mood)
		add(FieldTense, seg.Tense)
		add(FieldAspect, seg.Aspect)
	}

	ix.mu.Lock()
	ix.staged[view.ID] = doc
	ix.mu.Unlock()
}

// Commit publishes all staged documents. This is the sole point at
// which new writes become visible to searches.
func (ix *Index) Commit() {
	ix.mu.Lock()
	docs := make(map[string]*document, len(ix.staged))
	for id, doc := range ix.staged {
		docs[id] = doc
	}
	ix.published = buildSnapshot(docs)
	ix.mu.Unlock()
	ix.log.Debug("committed index snapshot", "docs", len(docs))
}

func (ix *Index) currentSnapshot() *snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.published
}

// DocCount reports the number of committed documents.
func (ix *Index) DocCount() int {
	return len(ix.currentSnapshot().docs)
}

// Search runs a structured query: free text over the default fields
// (match-all when empty) ANDed with every filter; values within one
// filter OR together. Hits rank by term-frequency score, descending,
// ties broken by doc id.
func (ix *Index) Search(spec *model.QuerySpec) ([]model.SearchHit, error) {
	snap := ix.currentSnapshot()

	// scores holds the free-text relevance per matching doc id.
	scores := make(map[string]float64)
	terms := tokenize(spec.Query)
	if len(terms) == 0 {
		for id := range snap.docs {
			scores[id] = 1
		}
	} else {
		for _, t := range terms {
			for _, f := range defaultFields {
				for id, tf := range snap.postings[f][t] {
					scores[id] += float64(tf)
				}
			}
		}
	}

	for _, filter := range spec.Filters {
		field, err := ParseField(filter.Field)
		if err != nil {
			return nil, err
		}
		matched := make(map[string]bool)
		for _, v := range filter.Values {
			for id := range snap.postings[field][term(v)] {
				matched[id] = true
			}
		}
		for id := range scores {
			if !matched[id] {
				delete(scores, id)
			}
		}
	}

	hits := make([]model.SearchHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, model.SearchHit{ID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit := spec.EffectiveLimit(); len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SearchWithFilters is the convenience form taking field → values pairs.
func (ix *Index) SearchWithFilters(text string, filters []model.QueryFilter, limit int) ([]model.SearchHit, error) {
	return ix.Search(&model.QuerySpec{Query: text, Filters: filters, Limit: limit})
}
