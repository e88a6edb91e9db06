// Copyright © 2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package index

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SearchOptions defines options used in searching.
type SearchOptions struct {
	TopN     int     // keep the topN hits, >= 1
	MinScore float64 // minimum score, i.e., shared hashes / query sketch size, [0, 1]

	Threads int

	// Progress is called after each query is searched.
	// It's called from multiple goroutines.
	Progress func()
}

// DefaultSearchOptions contains default option values.
var DefaultSearchOptions = SearchOptions{
	TopN:     5,
	MinScore: 0,
	Threads:  runtime.NumCPU(),
}

// CheckSearchOptions checks the searching options.
func CheckSearchOptions(opt *SearchOptions) error {
	if opt.TopN < 1 {
		return fmt.Errorf("invalid number of hits: %d, should be >= 1", opt.TopN)
	}
	if opt.MinScore < 0 || opt.MinScore > 1 {
		return fmt.Errorf("invalid minimum score: %f, valid range: [0, 1]", opt.MinScore)
	}
	return nil
}

// Hit is a database record matched by a query.
type Hit struct {
	DBID         string  // ID of the database record
	SharedHashes int     // the number of shared hashes
	Score        float64 // SharedHashes / query sketch size
}

// QueryResult contains hits of a query,
// sorted in descending order of shared hashes.
type QueryResult struct {
	QueryID string
	Hits    []Hit
}

// candidate is a matched database record.
type candidate struct {
	idx   int // position of the record
	count int // shared hashes
}

// before tells if c ranks before b:
// more shared hashes, or the same number with a smaller position.
func (c candidate) before(b candidate) bool {
	return c.count > b.count || (c.count == b.count && c.idx < b.idx)
}

var poolCandidates = &sync.Pool{New: func() interface{} {
	tmp := make([]candidate, 0, 1024)
	return &tmp
}}

// Search queries the index with a sequence, and returns at most topN hits
// with scores >= minScore. It returns nil if the query sketch is empty or
// no records qualified.
func (idx *Index) Search(s []byte, topN int, minScore float64) []Hit {
	hashes := idx.sk.Sketch(s)
	nHashes := len(hashes)
	if nHashes == 0 {
		return nil
	}

	// ----------------------------------------------------------------
	// counting shared hashes

	n := len(idx.ids)
	counts := idx.poolCounts.Get().(*[]uint32)
	defer idx.poolCounts.Put(counts)
	if len(*counts) < n {
		panic(ErrInvalidPosition)
	}
	clear(*counts)

	width := uint(n)
	for _, h := range hashes {
		bs := idx.Get(h)
		if bs == nil {
			continue
		}
		for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
			if i >= width {
				panic(ErrInvalidPosition)
			}
			(*counts)[i]++
		}
	}

	// ----------------------------------------------------------------
	// filtering

	cands := poolCandidates.Get().(*[]candidate)
	*cands = (*cands)[:0]
	defer poolCandidates.Put(cands)

	q := float64(nHashes)
	for i, c := range (*counts)[:n] {
		if c == 0 || float64(c)/q < minScore {
			continue
		}
		*cands = append(*cands, candidate{idx: i, count: int(c)})
	}
	if len(*cands) == 0 {
		return nil
	}

	// ----------------------------------------------------------------
	// ranking

	if topN > 0 && len(*cands) > topN {
		selectTopN(*cands, topN)
		*cands = (*cands)[:topN]
	}
	sort.Slice(*cands, func(i, j int) bool { return (*cands)[i].before((*cands)[j]) })

	hits := make([]Hit, len(*cands))
	for i, c := range *cands {
		hits[i] = Hit{
			DBID:         idx.ids[c.idx],
			SharedHashes: c.count,
			Score:        float64(c.count) / q,
		}
	}
	return hits
}

// Classify searches queries in parallel. Results are returned in the order
// of queries, queries without hits are omitted.
// Options are not checked here, please call CheckSearchOptions before.
func (idx *Index) Classify(queries []*Record, opt *SearchOptions) []*QueryResult {
	if opt == nil {
		opt = &DefaultSearchOptions
	}
	threads := opt.Threads
	if threads < 1 {
		threads = runtime.NumCPU()
	}

	results := make([]*QueryResult, len(queries))

	var g errgroup.Group
	g.SetLimit(threads)
	for i, q := range queries {
		i, q := i, q // per-iteration copies (go directive < 1.22)
		g.Go(func() error {
			if hits := idx.Search(q.Seq, opt.TopN, opt.MinScore); hits != nil {
				results[i] = &QueryResult{QueryID: q.ID, Hits: hits}
			}
			if opt.Progress != nil {
				opt.Progress()
			}
			return nil
		})
	}
	g.Wait() // workers never fail

	// remove empty results, keeping the order
	j := 0
	for _, r := range results {
		if r != nil {
			results[j] = r
			j++
		}
	}
	return results[:j]
}

// selectTopN partially sorts cands, so the first n elements are the best n
// ones (in arbitrary order). It takes linear time on average.
func selectTopN(cands []candidate, n int) {
	if n <= 0 || n >= len(cands) {
		return
	}

	k := n - 1
	lo, hi := 0, len(cands)-1
	var p int
	for lo < hi {
		p = partition(cands, lo, hi)
		if p == k {
			return
		}
		if p < k {
			lo = p + 1
		} else {
			hi = p - 1
		}
	}
}

// partition uses the median of three as the pivot, and returns its final position.
func partition(a []candidate, lo, hi int) int {
	mid := lo + (hi-lo)>>1
	if a[mid].before(a[lo]) {
		a[lo], a[mid] = a[mid], a[lo]
	}
	if a[hi].before(a[lo]) {
		a[lo], a[hi] = a[hi], a[lo]
	}
	if a[hi].before(a[mid]) {
		a[mid], a[hi] = a[hi], a[mid]
	}
	a[mid], a[hi] = a[hi], a[mid]
	pivot := a[hi]

	i := lo
	for j := lo; j < hi; j++ {
		if a[j].before(pivot) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}
