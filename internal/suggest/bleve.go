package suggest

import (
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
)

// BleveEngine keeps history terms in an in-memory bleve index. Besides
// whole-term prefixes it matches word prefixes inside multi-word terms and
// tolerates one typo per word.
type BleveEngine struct {
	mu  sync.RWMutex
	idx bleve.Index
}

func NewBleveEngine() (*BleveEngine, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &BleveEngine{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	// whole lower-cased term for prefix completion
	key := bleve.NewTextFieldMapping()
	key.Analyzer = keyword.Name
	key.Store = false

	term := bleve.NewTextFieldMapping()
	term.Analyzer = standard.Name
	term.Store = true

	rank := bleve.NewNumericFieldMapping()
	rank.Store = false

	dm.AddFieldMappingsAt("key", key)
	dm.AddFieldMappingsAt("term", term)
	dm.AddFieldMappingsAt("rank", rank)

	im.DefaultMapping = dm
	return im
}

// Index rebuilds the index from scratch.
func (b *BleveEngine) Index(terms []string) error {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return err
	}

	batch := idx.NewBatch()
	for i, t := range terms {
		lower := strings.ToLower(t)
		if err := batch.Index(lower, map[string]any{
			"key":  lower,
			"term": t,
			"rank": float64(i),
		}); err != nil {
			idx.Close()
			return err
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return err
	}

	b.mu.Lock()
	old := b.idx
	b.idx = idx
	b.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (b *BleveEngine) Suggest(prefix string, limit int) ([]string, error) {
	limit = clampLimit(limit)
	b.mu.RLock()
	defer b.mu.RUnlock()

	prefix = strings.TrimSpace(prefix)
	var q bleveQuery.Query
	if prefix == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		q = buildQuery(prefix)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"term"}
	if prefix == "" {
		req.SortBy([]string{"rank"})
	} else {
		req.SortBy([]string{"-_score", "rank"})
	}

	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		if t, ok := h.Fields["term"].(string); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func buildQuery(prefix string) bleveQuery.Query {
	lower := strings.ToLower(prefix)

	whole := bleve.NewPrefixQuery(lower)
	whole.SetField("key")
	whole.SetBoost(4.0)
	qs := []bleveQuery.Query{whole}

	words := strings.Fields(lower)
	if len(words) > 0 {
		last := words[len(words)-1]
		wp := bleve.NewPrefixQuery(last)
		wp.SetField("term")
		wp.SetBoost(2.0)
		qs = append(qs, wp)
	}

	fz := bleve.NewMatchQuery(prefix)
	fz.SetField("term")
	fz.SetFuzziness(1)
	fz.SetBoost(1.0)
	qs = append(qs, fz)

	return bleve.NewDisjunctionQuery(qs...)
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *BleveEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx.Close()
}
