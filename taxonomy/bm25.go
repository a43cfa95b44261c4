package taxonomy

import "math"

// Okapi BM25 over the category corpus. Each category label is one short
// document; term saturation (k1) stops repeated words from dominating and
// length normalization (b) keeps short labels from being penalized.
//
// Negative IDF values (terms present in most documents) are floored at
// epsilon times the mean IDF, the Okapi variant's handling of very common
// terms.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

type bm25Index struct {
	termFreqs []map[string]int // per-document term frequency
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

func newBM25Index(docs [][]string) *bm25Index {
	idx := &bm25Index{
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		idf:       make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, doc := range docs {
		freqs := make(map[string]int, len(doc))
		for _, term := range doc {
			freqs[term]++
		}
		idx.termFreqs[i] = freqs
		idx.docLens[i] = len(doc)
		totalLen += len(doc)
		for term := range freqs {
			docFreq[term]++
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}

	// IDF with epsilon floor for terms so common their raw IDF goes negative.
	n := float64(len(docs))
	idfSum := 0.0
	var negative []string
	for term, df := range docFreq {
		idf := math.Log((n - float64(df) + 0.5) / (float64(df) + 0.5))
		idx.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(docFreq) > 0 {
		floor := bm25Epsilon * idfSum / float64(len(docFreq))
		for _, term := range negative {
			idx.idf[term] = floor
		}
	}

	return idx
}

// scores returns one BM25 score per document for the query terms, in corpus
// order.
func (idx *bm25Index) scores(query []string) []float64 {
	out := make([]float64, len(idx.termFreqs))
	for _, term := range query {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		for i, freqs := range idx.termFreqs {
			f := float64(freqs[term])
			if f == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(idx.docLens[i])/idx.avgDocLen
			out[i] += idf * (f * (bm25K1 + 1)) / (f + bm25K1*norm)
		}
	}
	return out
}
