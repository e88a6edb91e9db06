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

import (
	"github.com/shenwei356/UltrANI/ultrani/util"
	"github.com/shenwei356/lexichash"
)

// LexicHashSeed is the seed for generating LexicHash masks.
const LexicHashSeed int64 = 1

// MinMasks is the minimum number of masks of LexicHashSketch,
// smaller values are rejected by lexichash.
const MinMasks = 64

// LexicHashSketch captures k-mers with LexicHash masks, i.e., for each mask,
// the k-mer sharing the longest prefix with it after XOR.
// W is used as the number of masks here, raised to MinMasks if smaller,
// and K needs to be <= 32.
type LexicHashSketch struct {
	params

	lh *lexichash.LexicHash
}

func newLexicHashSketch(p params) (*LexicHashSketch, error) {
	if p.k > 32 {
		return nil, ErrKOverflow
	}
	nMasks := p.w
	if nMasks < MinMasks {
		nMasks = MinMasks
	}

	lh, err := lexichash.NewWithSeed(p.k, nMasks, LexicHashSeed, 0)
	if err != nil {
		return nil, err
	}
	return &LexicHashSketch{params: p, lh: lh}, nil
}

// Masks returns the number of masks.
func (m *LexicHashSketch) Masks() int { return len(m.lh.Masks) }

// Sketch returns hashes of the k-mers captured by all masks.
func (m *LexicHashSketch) Sketch(s []byte) []uint64 {
	if len(s) < m.k {
		return []uint64{}
	}

	seq := toUpper(s)
	_kmers, locses, err := m.lh.Mask(*seq, nil)
	poolBytes.Put(seq)
	if err != nil { // only happens for sequences shorter than k
		return []uint64{}
	}

	result := make([]uint64, 0, len(*_kmers))
	for i, kmer := range *_kmers {
		if len((*locses)[i]) == 0 { // nothing captured
			continue
		}
		result = append(result, util.Hash64(kmer))
	}
	m.lh.RecycleMaskResult(_kmers, locses)

	return finish(result)
}
