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

package sketch

// SyncmerSketch selects k-mers by the position of the minimal-hash s-mer
// (core) among all the K-s+1 s-mers inside them.
//
//	closed syncmer: the minimal core is the first or the last one.
//	open syncmer:   the minimal core is at the offset (K-s)/2.
//
// s is derived from K and W: s = max(1, K-W-1), so a k-mer has W+2 cores
// and the density is about 2/(W+2) (closed) or 1/(W+2) (open) when K >= W+2.
type SyncmerSketch struct {
	params

	closed bool
	s      int // core size
	offset int // the offset of the minimal core of open syncmers
}

func newSyncmerSketch(p params) *SyncmerSketch {
	s := p.k - p.w - 1
	if s < 1 {
		s = 1
	}
	return &SyncmerSketch{
		params: p,
		closed: p.t == TypeClosedSyncmer,
		s:      s,
		offset: (p.k - s) >> 1, // it's 0 when K-s < 2, no interior offset exists.
	}
}

// S returns the core size.
func (m *SyncmerSketch) S() int { return m.s }

// Sketch returns the syncmers of s.
func (m *SyncmerSketch) Sketch(s []byte) []uint64 {
	if len(s) < m.k {
		return []uint64{}
	}

	seq := toUpper(s)
	cores := poolHashes.Get().(*[]uint64)
	hashAll(*seq, m.s, cores)

	k := m.k
	last := k - m.s // offset of the last core
	result := make([]uint64, 0, 8)
	var off int
	// a window of last+1 cores is exactly the cores of the k-mer starting at the same position
	windowMinima(*cores, last+1, func(start, pos int) {
		off = pos - start
		if m.closed {
			if off != 0 && off != last {
				return
			}
		} else if off != m.offset {
			return
		}
		result = append(result, Hash((*seq)[start:start+k]))
	})

	poolHashes.Put(cores)
	poolBytes.Put(seq)

	return finish(result)
}
