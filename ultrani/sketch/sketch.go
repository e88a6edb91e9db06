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

// Package sketch reduces nucleotide sequences to small sets of k-mer hashes.
// Two sequences sharing a large fraction of sketch hashes are likely to share
// a large fraction of their k-mers.
package sketch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shenwei356/UltrANI/ultrani/util"
	"github.com/zeebo/wyhash"
)

// ErrInvalidK means the k-mer size is < 1.
var ErrInvalidK = errors.New("sketch: invalid k-mer size, should be >= 1")

// ErrInvalidWindow means the window size is < 1.
var ErrInvalidWindow = errors.New("sketch: invalid window size, should be >= 1")

// ErrKOverflow means k > 32, only happens for LexicHash.
var ErrKOverflow = errors.New("sketch: k-mer size should be <= 32 for lexichash")

// ErrUnknownType means the sketch type is not supported.
var ErrUnknownType = errors.New("sketch: unknown sketch type")

// Seed is the seed of the k-mer hash function.
// Changing it invalidates all existing indexes.
const Seed uint64 = 1

// Type is the sketching algorithm.
type Type uint8

const (
	TypeMinimizer Type = iota
	TypeClosedSyncmer
	TypeOpenSyncmer
	TypeLexicHash
)

var typeNames = []string{"minimizer", "closed-syncmer", "open-syncmer", "lexichash"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("unknown(%d)", t)
}

// TypeNames returns names of all sketch types.
func TypeNames() []string {
	names := make([]string, len(typeNames))
	copy(names, typeNames)
	return names
}

// ParseType returns the sketch type of a name, case ignored.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(name)
	for i, s := range typeNames {
		if s == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s, available: %s", ErrUnknownType, name, strings.Join(typeNames, ", "))
}

// Sketcher turns a sequence into a set of hashes.
// The result is sorted in ascending order and has no duplicates,
// it's empty for sequences shorter than K.
// Sketch is safe for concurrent use.
type Sketcher interface {
	Sketch(s []byte) []uint64
	Type() Type
	K() int
	W() int
}

// New creates a Sketcher.
func New(t Type, k int, w int) (Sketcher, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if w < 1 {
		return nil, ErrInvalidWindow
	}

	p := params{t: t, k: k, w: w}
	switch t {
	case TypeMinimizer:
		return &MinimizerSketch{params: p}, nil
	case TypeClosedSyncmer, TypeOpenSyncmer:
		return newSyncmerSketch(p), nil
	case TypeLexicHash:
		return newLexicHashSketch(p)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}

type params struct {
	t Type
	k int
	w int
}

// Type returns the sketch type.
func (p params) Type() Type { return p.t }

// K returns the k-mer size.
func (p params) K() int { return p.k }

// W returns the window size.
func (p params) W() int { return p.w }

// Hash returns the hash value of a k-mer. The k-mer should be in upper case.
func Hash(kmer []byte) uint64 {
	return wyhash.Hash(kmer, Seed)
}

// toUpper copies s into a pooled buffer in upper case.
func toUpper(s []byte) *[]byte {
	buf := poolBytes.Get().(*[]byte)
	*buf = (*buf)[:0]
	for _, b := range s {
		if b >= 'a' && b <= 'z' {
			b -= 32
		}
		*buf = append(*buf, b)
	}
	return buf
}

var poolBytes = &sync.Pool{New: func() interface{} {
	tmp := make([]byte, 0, 1<<20)
	return &tmp
}}

var poolHashes = &sync.Pool{New: func() interface{} {
	tmp := make([]uint64, 0, 1<<20)
	return &tmp
}}

var poolDeque = &sync.Pool{New: func() interface{} {
	tmp := make([]int, 0, 1024)
	return &tmp
}}

// hashAll computes hashes of all the k-mers of s.
func hashAll(s []byte, k int, hashes *[]uint64) {
	*hashes = (*hashes)[:0]
	n := len(s) - k + 1
	for i := 0; i < n; i++ {
		*hashes = append(*hashes, Hash(s[i:i+k]))
	}
}

// windowMinima slides a window of win values along values, and calls fn with
// the start of the window and the position of its minimum value.
// The leftmost one is chosen for ties.
func windowMinima(values []uint64, win int, fn func(start, pos int)) {
	n := len(values)
	if n == 0 || win < 1 {
		return
	}
	if win > n {
		win = n
	}

	dq := poolDeque.Get().(*[]int)
	if cap(*dq) < n {
		*dq = make([]int, n)
	} else {
		*dq = (*dq)[:n]
	}
	q := *dq
	var head, tail int // q[head:tail] keeps positions with increasing values

	var v uint64
	for i := 0; i < n; i++ {
		v = values[i]
		for tail > head && values[q[tail-1]] > v {
			tail--
		}
		q[tail] = i
		tail++

		if q[head] <= i-win {
			head++
		}

		if i >= win-1 {
			fn(i-win+1, q[head])
		}
	}

	poolDeque.Put(dq)
}

// finish sorts and deduplicates a sketch.
func finish(hashes []uint64) []uint64 {
	util.UniqUint64s(&hashes)
	return hashes
}
