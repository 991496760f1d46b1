// Package fts is the full-text search collaborator used to evaluate MATCH
// predicates against TSVector columns: a per-column inverted index with
// BM25 scoring, queried for the set of matching row keys rather than a
// ranked result list, since the executor folds FTS hits back into ordinary
// row filtering.
package fts

import (
	"math"
	"regexp"
	"strings"
	"sync"
)

var tokenPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// tokenize lowercases and splits on runs of non-letter/non-digit characters.
func tokenize(text string) []string {
	parts := tokenPattern.Split(text, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		tokens = append(tokens, strings.ToLower(p))
	}
	return tokens
}

type postings struct {
	docFreq  map[string]int // docID -> term frequency
	docCount int
}

// Index is an inverted index over one TSVector column, identified by the
// caller's own row-key scheme (so it composes with the mvcc row key format).
type Index struct {
	mu           sync.RWMutex
	terms        map[string]*postings
	docLengths   map[string]int
	totalDocs    int
	avgDocLength float64
}

// NewIndex creates an empty full-text index.
func NewIndex() *Index {
	return &Index{
		terms:      make(map[string]*postings),
		docLengths: make(map[string]int),
	}
}

// Index tokenizes text and (re)indexes it under docID, replacing any prior
// content for that document.
func (idx *Index) Index(docID string, text string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(docID)

	tokens := tokenize(text)
	freqs := make(map[string]int)
	for _, tok := range tokens {
		freqs[tok]++
	}
	for tok, freq := range freqs {
		p, ok := idx.terms[tok]
		if !ok {
			p = &postings{docFreq: make(map[string]int)}
			idx.terms[tok] = p
		}
		if _, exists := p.docFreq[docID]; !exists {
			p.docCount++
		}
		p.docFreq[docID] = freq
	}
	idx.docLengths[docID] = len(tokens)
	idx.totalDocs++
	idx.recalcAvgLocked()
}

// Remove deletes docID from the index entirely.
func (idx *Index) Remove(docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(docID)
}

func (idx *Index) removeLocked(docID string) {
	if _, existed := idx.docLengths[docID]; !existed {
		return
	}
	for tok, p := range idx.terms {
		if _, ok := p.docFreq[docID]; ok {
			delete(p.docFreq, docID)
			p.docCount--
			if p.docCount == 0 {
				delete(idx.terms, tok)
			}
		}
	}
	delete(idx.docLengths, docID)
	idx.totalDocs--
	idx.recalcAvgLocked()
}

func (idx *Index) recalcAvgLocked() {
	if idx.totalDocs <= 0 {
		idx.avgDocLength = 0
		return
	}
	total := 0
	for _, l := range idx.docLengths {
		total += l
	}
	idx.avgDocLength = float64(total) / float64(idx.totalDocs)
}

// Result is one matching document and its BM25 relevance score.
type Result struct {
	DocID string
	Score float64
}

// Search tokenizes query and returns every document containing at least
// one query token, scored by BM25 and sorted best-first.
func (idx *Index) Search(query string) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for _, tok := range tokens {
		p, ok := idx.terms[tok]
		if !ok {
			continue
		}
		for docID, freq := range p.docFreq {
			scores[docID] += idx.bm25(docID, freq, p.docCount)
		}
	}

	results := make([]Result, 0, len(scores))
	for docID, score := range scores {
		results = append(results, Result{DocID: docID, Score: score})
	}
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	return results
}

// bm25 computes the Okapi BM25 relevance contribution of one term.
func (idx *Index) bm25(docID string, termFreq, docFreq int) float64 {
	const k1 = 1.5
	const b = 0.75

	docLength := float64(idx.docLengths[docID])
	avg := idx.avgDocLength
	if avg == 0 {
		avg = 1
	}

	n := float64(idx.totalDocs)
	df := float64(docFreq)
	idf := math.Log((n-df+0.5)/(df+0.5) + 1.0)

	tf := float64(termFreq)
	lengthNorm := 1.0 - b + b*(docLength/avg)
	tfComponent := (tf * (k1 + 1.0)) / (tf + k1*lengthNorm)

	return idf * tfComponent
}
