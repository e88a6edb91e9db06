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
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func randSeq(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[r.Intn(4)]
	}
	return s
}

func allSketchers(t *testing.T, k, w int) []Sketcher {
	sks := make([]Sketcher, 0, 4)
	for _, name := range TypeNames() {
		typ, err := ParseType(name)
		if err != nil {
			t.Fatal(err)
		}
		sk, err := New(typ, k, w)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		sks = append(sks, sk)
	}
	return sks
}

func equalUint64s(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNew(t *testing.T) {
	if _, err := New(TypeMinimizer, 0, 5); !errors.Is(err, ErrInvalidK) {
		t.Errorf("k=0 should fail with ErrInvalidK, returned: %v", err)
	}
	if _, err := New(TypeOpenSyncmer, 15, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("w=0 should fail with ErrInvalidWindow, returned: %v", err)
	}
	if _, err := New(TypeLexicHash, 33, 16); !errors.Is(err, ErrKOverflow) {
		t.Errorf("k=33 should fail for lexichash, returned: %v", err)
	}
	if _, err := New(Type(100), 15, 7); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type should fail, returned: %v", err)
	}
	if _, err := ParseType("spaced-seed"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type name should fail, returned: %v", err)
	}
	if typ, err := ParseType("Closed-Syncmer"); err != nil || typ != TypeClosedSyncmer {
		t.Errorf("failed to parse type name case-insensitively: %v, %v", typ, err)
	}

	sk, err := New(TypeOpenSyncmer, 15, 7)
	if err != nil {
		t.Fatal(err)
	}
	if sk.Type() != TypeOpenSyncmer || sk.K() != 15 || sk.W() != 7 {
		t.Errorf("unexpected parameters: %s, %d, %d", sk.Type(), sk.K(), sk.W())
	}
	if s := sk.(*SyncmerSketch).S(); s != 7 {
		t.Errorf("unexpected core size: %d", s)
	}
}

func TestDeterminismAndCase(t *testing.T) {
	s := randSeq(5000, 1)
	lower := bytes.ToLower(s)
	mixed := append([]byte{}, s...)
	for i := 0; i < len(mixed); i += 3 {
		mixed[i] = lower[i]
	}

	for _, sk := range allSketchers(t, 15, 7) {
		h1 := sk.Sketch(s)
		if len(h1) == 0 {
			t.Errorf("%s: empty sketch", sk.Type())
			continue
		}
		if h2 := sk.Sketch(s); !equalUint64s(h1, h2) {
			t.Errorf("%s: sketches differ between calls", sk.Type())
		}
		if h2 := sk.Sketch(lower); !equalUint64s(h1, h2) {
			t.Errorf("%s: sketches differ for lower case sequence", sk.Type())
		}
		if h2 := sk.Sketch(mixed); !equalUint64s(h1, h2) {
			t.Errorf("%s: sketches differ for mixed case sequence", sk.Type())
		}

		for i := 1; i < len(h1); i++ {
			if h1[i-1] >= h1[i] {
				t.Errorf("%s: sketch is not sorted or has duplicates", sk.Type())
				break
			}
		}
	}
}

func TestShortSequences(t *testing.T) {
	for _, sk := range allSketchers(t, 15, 7) {
		for _, s := range [][]byte{nil, []byte(""), []byte("ACGT"), []byte("ACGTACGTACGTAC")} {
			if h := sk.Sketch(s); len(h) != 0 {
				t.Errorf("%s: sequence shorter than k (%d) should have empty sketch, returned %d hashes",
					sk.Type(), len(s), len(h))
			}
		}
	}
}

func TestMinimizerDensity(t *testing.T) {
	L := 100000
	s := randSeq(L, 11)
	k := 21
	nKmers := L - k + 1

	for _, w := range []int{1, 5, 10, 20} {
		sk, err := New(TypeMinimizer, k, w)
		if err != nil {
			t.Fatal(err)
		}
		n := len(sk.Sketch(s))
		if n > nKmers {
			t.Errorf("w=%d: sketch size %d > number of k-mers %d", w, n, nKmers)
		}
		expected := float64(nKmers) * 2 / float64(w+1)
		if w == 1 {
			expected = float64(nKmers)
		}
		if r := float64(n) / expected; r < 0.8 || r > 1.2 {
			t.Errorf("w=%d: sketch size %d far from expected %.0f", w, n, expected)
		}
	}
}

func TestMinimizerWindow(t *testing.T) {
	s := []byte("ACGTTGCAAGCTAGCTAGGATCGATCGGCTA")
	k, w := 5, 4
	sk, _ := New(TypeMinimizer, k, w)

	// brute force
	n := len(s) - k + 1
	hashes := make([]uint64, n)
	for i := 0; i < n; i++ {
		hashes[i] = Hash(s[i : i+k])
	}
	m := make(map[uint64]struct{})
	for i := 0; i+w <= n; i++ {
		p := i
		for j := i + 1; j < i+w; j++ {
			if hashes[j] < hashes[p] {
				p = j
			}
		}
		m[hashes[p]] = struct{}{}
	}

	h := sk.Sketch(s)
	if len(h) != len(m) {
		t.Errorf("expected %d minimizers, returned %d", len(m), len(h))
	}
	for _, v := range h {
		if _, ok := m[v]; !ok {
			t.Errorf("unexpected minimizer: %d", v)
		}
	}

	// fewer k-mers than the window size
	sk, _ = New(TypeMinimizer, k, 100)
	if h = sk.Sketch(s); len(h) != 1 {
		t.Errorf("one minimizer expected for a single partial window, returned %d", len(h))
	}
}

func TestSyncmers(t *testing.T) {
	s := randSeq(2000, 7)
	k, w := 15, 7

	for _, typ := range []Type{TypeClosedSyncmer, TypeOpenSyncmer} {
		sk, _ := New(typ, k, w)
		m := sk.(*SyncmerSketch)
		cs := m.S()
		last := k - cs

		// brute force
		expected := make(map[uint64]struct{})
		for i := 0; i+k <= len(s); i++ {
			kmer := s[i : i+k]
			p := 0
			min := Hash(kmer[0:cs])
			for j := 1; j <= last; j++ {
				if v := Hash(kmer[j : j+cs]); v < min {
					min, p = v, j
				}
			}
			if typ == TypeClosedSyncmer && (p == 0 || p == last) ||
				typ == TypeOpenSyncmer && p == last/2 {
				expected[Hash(kmer)] = struct{}{}
			}
		}

		h := sk.Sketch(s)
		if len(h) != len(expected) {
			t.Errorf("%s: expected %d syncmers, returned %d", typ, len(expected), len(h))
		}
		for _, v := range h {
			if _, ok := expected[v]; !ok {
				t.Errorf("%s: unexpected syncmer: %d", typ, v)
				break
			}
		}
	}
}

func TestWindowMinima(t *testing.T) {
	values := []uint64{5, 3, 3, 4, 1, 1, 6}
	var got [][2]int
	windowMinima(values, 3, func(start, pos int) {
		got = append(got, [2]int{start, pos})
	})
	expected := [][2]int{{0, 1}, {1, 1}, {2, 4}, {3, 4}, {4, 4}}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, returned %v", expected, got)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("expected %v, returned %v", expected, got)
			break
		}
	}
}

func TestSharedHashes(t *testing.T) {
	s1 := randSeq(20000, 3)
	s2 := append([]byte{}, s1...)
	r := rand.New(rand.NewSource(5))
	for i := 0; i < len(s2); i += 100 { // 1% substitutions
		s2[i+r.Intn(100)] = 'N'
	}
	s3 := randSeq(20000, 4)

	for _, sk := range allSketchers(t, 15, 7) {
		h1, h2, h3 := sk.Sketch(s1), sk.Sketch(s2), sk.Sketch(s3)
		c12, c13 := shared(h1, h2), shared(h1, h3)
		if c12 <= c13 {
			t.Errorf("%s: similar sequences should share more hashes: %d vs %d", sk.Type(), c12, c13)
		}
	}
}

func shared(a, b []uint64) (n int) {
	var i, j int
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}

func TestLexicHashMasks(t *testing.T) {
	s := randSeq(3000, 21)
	for _, w := range []int{1, 7, 10, 63, 64, 100} {
		sk, err := New(TypeLexicHash, 15, w)
		if err != nil {
			t.Errorf("w=%d: %s", w, err)
			continue
		}
		masks := w
		if masks < MinMasks {
			masks = MinMasks
		}
		if n := sk.(*LexicHashSketch).Masks(); n != masks {
			t.Errorf("w=%d: %d masks expected, %d returned", w, masks, n)
		}
		if sk.W() != w {
			t.Errorf("w=%d: window should be kept, returned %d", w, sk.W())
		}
		if h := sk.Sketch(s); len(h) == 0 || len(h) > masks {
			t.Errorf("w=%d: unexpected sketch size: %d", w, len(h))
		}
	}
}

func TestSyncmerCoreSizeSaturation(t *testing.T) {
	k := 15
	s := randSeq(5000, 22)
	for _, typ := range []Type{TypeClosedSyncmer, TypeOpenSyncmer} {
		var base []uint64
		for _, w := range []int{k - 2, k - 1, k, 2 * k} {
			sk, err := New(typ, k, w)
			if err != nil {
				t.Fatal(err)
			}
			if c := sk.(*SyncmerSketch).S(); c != 1 {
				t.Errorf("%s w=%d: core size 1 expected, returned %d", typ, w, c)
			}
			h := sk.Sketch(s)
			if base == nil {
				base = h
			} else if !equalUint64s(base, h) {
				t.Errorf("%s w=%d: sketch should equal that of w=%d", typ, w, k-2)
			}
		}

		sk, _ := New(typ, k, k-3)
		if c := sk.(*SyncmerSketch).S(); c != 2 {
			t.Errorf("%s w=%d: core size 2 expected, returned %d", typ, k-3, c)
		}
	}
}
