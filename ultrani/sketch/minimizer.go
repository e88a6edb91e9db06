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

// MinimizerSketch keeps the k-mer with the minimum hash in every window of
// W consecutive k-mers. The density is about 2/(W+1).
type MinimizerSketch struct {
	params
}

// Sketch returns the minimizers of s.
// If s has fewer than W k-mers, the minimizer of all of them is returned.
func (m *MinimizerSketch) Sketch(s []byte) []uint64 {
	if len(s) < m.k {
		return []uint64{}
	}

	seq := toUpper(s)
	hashes := poolHashes.Get().(*[]uint64)
	hashAll(*seq, m.k, hashes)
	poolBytes.Put(seq)

	n := len(*hashes)
	result := make([]uint64, 0, 2*n/(m.w+1)+1)
	last := -1
	windowMinima(*hashes, m.w, func(_, pos int) {
		if pos != last { // adjacent windows often share the minimizer
			result = append(result, (*hashes)[pos])
			last = pos
		}
	})
	poolHashes.Put(hashes)

	return finish(result)
}
