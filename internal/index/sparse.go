package index

import (
	"math"
	"sort"
	"strings"

	"market-intel/internal/domain"
)

// BM25 parameters (Okapi).
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

type posting struct {
	doc int // internal doc id = insertion position
	tf  int
}

// SparseIndex is an append-only BM25 index. Tokenization is lowercase
// whitespace split with no stemming.
type SparseIndex struct {
	postings map[string][]posting
	docLens  []int
	ids      []domain.ChunkID
	totalLen int
}

func NewSparseIndex() *SparseIndex {
	return &SparseIndex{postings: make(map[string][]posting)}
}

// Add appends one document per chunk, updating postings, document lengths,
// and the running corpus totals that back IDF and avg_doc_len.
func (x *SparseIndex) Add(chunks []domain.Chunk) {
	for _, c := range chunks {
		doc := len(x.ids)
		tokens := Tokenize(c.Text)

		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for term, count := range tf {
			x.postings[term] = append(x.postings[term], posting{doc: doc, tf: count})
		}

		x.ids = append(x.ids, c.ID)
		x.docLens = append(x.docLens, len(tokens))
		x.totalLen += len(tokens)
	}
}

// Search scores documents against every query token occurrence, keeps
// strictly positive scores, and returns the top-k descending with ties
// broken by insertion order.
func (x *SparseIndex) Search(query string, k int) []Hit {
	if k <= 0 || len(x.ids) == 0 {
		return nil
	}
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	n := float64(len(x.ids))
	avgdl := float64(x.totalLen) / n

	scores := make(map[int]float64)
	for _, t := range tokens {
		plist, ok := x.postings[t]
		if !ok {
			continue
		}
		idf := math.Log(1 + (n-float64(len(plist))+0.5)/(float64(len(plist))+0.5))
		for _, p := range plist {
			tf := float64(p.tf)
			dl := float64(x.docLens[p.doc])
			scores[p.doc] += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*dl/avgdl))
		}
	}

	// Build hits in insertion (doc id) order so the stable score sort
	// breaks ties by insertion order.
	docs := make([]int, 0, len(scores))
	for doc, score := range scores {
		if score > 0 {
			docs = append(docs, doc)
		}
	}
	sort.Ints(docs)

	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, Hit{ID: x.ids[doc], Score: scores[doc]})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Size returns the number of indexed documents.
func (x *SparseIndex) Size() int {
	return len(x.ids)
}

// Tokenize lowercases and whitespace-splits text. Shared with the sparse
// query path so documents and queries agree on term shapes.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
