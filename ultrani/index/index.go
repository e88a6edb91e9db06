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
	"errors"
	"runtime"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/shenwei356/UltrANI/ultrani/sketch"
)

// ErrInvalidPosition means a record position out of the range of the index.
// It never happens for indexes created by Build or NewFromPath.
var ErrInvalidPosition = errors.New("index: record position out of range")

// Record is a sequence record. Sequences of database records should not be
// modified after building the index.
type Record struct {
	ID  string
	Seq []byte
}

// NShards is the number of shards of the hash table.
// Shards are selected with the highest 8 bits of hash values,
// so the sorted hashes of a sketch are grouped by shards.
const NShards = 256

const shardShift = 56

// Index is a reverse index mapping k-mer hashes to sets of database records.
// Each set is a bitset with the width of the number of records, bit i means
// the sketch of record i contains the hash.
//
// An Index is immutable once returned, and safe for concurrent searching.
type Index struct {
	sk sketch.Sketcher

	ids   []string // record IDs
	sizes []int    // sketch sizes of records

	shards   [NShards]map[uint64]*bitset.BitSet
	nEntries int

	path string // path of the index directory, only for index loaded from file

	poolCounts *sync.Pool
}

// BuildOptions contains the options for building an index.
type BuildOptions struct {
	Threads int

	// Progress is called after each record is indexed.
	// It's called from multiple goroutines.
	Progress func()
}

// DefaultBuildOptions uses all CPUs.
var DefaultBuildOptions = BuildOptions{
	Threads: runtime.NumCPU(),
}

type shard struct {
	mu sync.Mutex
	m  map[uint64]*bitset.BitSet
}

// Build sketches database records in parallel and inverts them into an Index.
// The position of a record in records is its identifier in the index.
func Build(records []*Record, sk sketch.Sketcher, opt *BuildOptions) *Index {
	if opt == nil {
		opt = &DefaultBuildOptions
	}
	threads := opt.Threads
	if threads < 1 {
		threads = runtime.NumCPU()
	}

	n := len(records)
	width := uint(n)
	shards := make([]*shard, NShards)
	for i := range shards {
		shards[i] = &shard{m: make(map[uint64]*bitset.BitSet, 1024)}
	}

	sizes := make([]int, n)

	var wg sync.WaitGroup
	tokens := make(chan int, threads)
	for i, r := range records {
		tokens <- 1
		wg.Add(1)
		go func(i int, r *Record) {
			defer func() {
				wg.Done()
				<-tokens
			}()

			hashes := sk.Sketch(r.Seq)
			sizes[i] = len(hashes)

			pos := uint(i)
			var j, end int
			var s uint64
			var sh *shard
			var bs *bitset.BitSet
			var ok bool
			for j < len(hashes) {
				// hashes are sorted, so hashes of the same shard are adjacent.
				s = hashes[j] >> shardShift
				end = j + 1
				for end < len(hashes) && hashes[end]>>shardShift == s {
					end++
				}

				sh = shards[s]
				sh.mu.Lock()
				for _, h := range hashes[j:end] {
					if bs, ok = sh.m[h]; !ok {
						bs = bitset.New(width)
						sh.m[h] = bs
					}
					bs.Set(pos)
				}
				sh.mu.Unlock()

				j = end
			}

			if opt.Progress != nil {
				opt.Progress()
			}
		}(i, r)
	}
	wg.Wait()

	// seal
	ids := make([]string, n)
	for i, r := range records {
		ids[i] = r.ID
	}
	idx := newIndex(sk, ids, sizes)
	for i, sh := range shards {
		idx.shards[i] = sh.m
		idx.nEntries += len(sh.m)
	}

	return idx
}

func newIndex(sk sketch.Sketcher, ids []string, sizes []int) *Index {
	n := len(ids)
	return &Index{
		sk:    sk,
		ids:   ids,
		sizes: sizes,
		poolCounts: &sync.Pool{New: func() interface{} {
			tmp := make([]uint32, n)
			return &tmp
		}},
	}
}

// Sketcher returns the sketcher used to build the index.
func (idx *Index) Sketcher() sketch.Sketcher {
	return idx.sk
}

// NumRecords returns the number of database records.
func (idx *Index) NumRecords() int {
	return len(idx.ids)
}

// NumHashes returns the number of distinct hashes.
func (idx *Index) NumHashes() int {
	return idx.nEntries
}

// IDs returns the IDs of database records. Do not modify it.
func (idx *Index) IDs() []string {
	return idx.ids
}

// SketchSizes returns the sketch sizes of database records. Do not modify it.
func (idx *Index) SketchSizes() []int {
	return idx.sizes
}

// Path returns the path of an index read from a directory.
func (idx *Index) Path() string {
	return idx.path
}

// Get returns the records containing a hash, nil for absent hashes.
// Do not modify it.
func (idx *Index) Get(h uint64) *bitset.BitSet {
	return idx.shards[h>>shardShift][h]
}

// Hashes returns all the hashes in the index, unsorted.
func (idx *Index) Hashes() []uint64 {
	hashes := make([]uint64, 0, idx.nEntries)
	for _, m := range idx.shards {
		for h := range m {
			hashes = append(hashes, h)
		}
	}
	return hashes
}
