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
	"math/rand"
	"sort"
	"testing"

	"github.com/shenwei356/UltrANI/ultrani/sketch"
)

func randSeq(r *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[r.Intn(4)]
	}
	return s
}

func newSketcher(t *testing.T, typ sketch.Type, k, w int) sketch.Sketcher {
	sk, err := sketch.New(typ, k, w)
	if err != nil {
		t.Fatal(err)
	}
	return sk
}

// testRecords returns random records, some of them share regions.
func testRecords(n int, seed int64) []*Record {
	r := rand.New(rand.NewSource(seed))
	shared := randSeq(r, 500)
	records := make([]*Record, n)
	for i := range records {
		s := randSeq(r, 1000+r.Intn(1000))
		if i%3 == 0 {
			s = append(s, shared...)
		}
		records[i] = &Record{ID: fmt.Sprintf("ref%d", i), Seq: s}
	}
	return records
}

func TestBuild(t *testing.T) {
	records := testRecords(50, 1)

	for _, typ := range []sketch.Type{sketch.TypeMinimizer, sketch.TypeClosedSyncmer, sketch.TypeOpenSyncmer} {
		sk := newSketcher(t, typ, 15, 5)
		idx := Build(records, sk, &BuildOptions{Threads: 4})

		if idx.NumRecords() != len(records) {
			t.Errorf("%s: %d records expected, %d returned", typ, len(records), idx.NumRecords())
		}

		sketches := make([]map[uint64]struct{}, len(records))
		all := make(map[uint64]struct{})
		for i, rec := range records {
			hashes := sk.Sketch(rec.Seq)
			if idx.SketchSizes()[i] != len(hashes) {
				t.Errorf("%s: sketch size of record %d: %d expected, %d returned",
					typ, i, len(hashes), idx.SketchSizes()[i])
			}
			sketches[i] = make(map[uint64]struct{}, len(hashes))
			for _, h := range hashes {
				sketches[i][h] = struct{}{}
				all[h] = struct{}{}

				bs := idx.Get(h)
				if bs == nil || !bs.Test(uint(i)) {
					t.Errorf("%s: bit %d not set for hash %d", typ, i, h)
				}
			}
		}

		if idx.NumHashes() != len(all) {
			t.Errorf("%s: %d hashes expected, %d returned", typ, len(all), idx.NumHashes())
		}

		for _, h := range idx.Hashes() {
			bs := idx.Get(h)
			if bs.Len() != uint(len(records)) {
				t.Errorf("%s: unexpected bitset width: %d", typ, bs.Len())
			}
			for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
				if _, ok2 := sketches[i][h]; !ok2 {
					t.Errorf("%s: bit %d set for hash %d not in its sketch", typ, i, h)
				}
			}
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	idx := Build(nil, newSketcher(t, sketch.TypeMinimizer, 15, 5), nil)
	if idx.NumRecords() != 0 || idx.NumHashes() != 0 {
		t.Errorf("empty index expected")
	}
	if hits := idx.Search([]byte("ACGTACGTACGTACGTACGT"), 5, 0); hits != nil {
		t.Errorf("no hits expected for empty index")
	}
}

func TestExample(t *testing.T) {
	db := []*Record{
		{ID: "ref1", Seq: []byte("ACGTACGTACGT")},
		{ID: "ref2", Seq: []byte("TTTTTTTTTTTT")},
	}
	queries := []*Record{
		{ID: "q1", Seq: []byte("ACGTACGTACGT")},
	}

	idx := Build(db, newSketcher(t, sketch.TypeMinimizer, 4, 2), nil)
	results := idx.Classify(queries, &SearchOptions{TopN: 5, MinScore: 0, Threads: 2})

	if len(results) != 1 {
		t.Fatalf("one result expected, %d returned", len(results))
	}
	r := results[0]
	if r.QueryID != "q1" || len(r.Hits) != 1 {
		t.Fatalf("one hit of q1 expected, returned: %+v", r)
	}
	h := r.Hits[0]
	if h.DBID != "ref1" || h.SharedHashes == 0 || h.Score != 1 {
		t.Errorf("unexpected hit: %+v", h)
	}
}

func TestSelfMatch(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	db := make([]*Record, 20)
	for i := range db {
		db[i] = &Record{ID: fmt.Sprintf("ref%d", i), Seq: randSeq(r, 3000)}
	}

	for _, name := range sketch.TypeNames() {
		typ, _ := sketch.ParseType(name)
		idx := Build(db, newSketcher(t, typ, 21, 10), nil)

		for i := range db {
			hits := idx.Search(db[i].Seq, 5, 0)
			if len(hits) != 1 {
				t.Errorf("%s: one hit expected for record %d, %d returned", typ, i, len(hits))
				continue
			}
			if hits[0].DBID != db[i].ID || hits[0].Score != 1 ||
				hits[0].SharedHashes != idx.SketchSizes()[i] {
				t.Errorf("%s: unexpected hit for record %d: %+v", typ, i, hits[0])
			}
		}
	}
}

func rankingRecords() ([]*Record, []byte) {
	r := rand.New(rand.NewSource(3))
	q := randSeq(r, 6000)
	db := []*Record{
		{ID: "p1000", Seq: q[:1000]},
		{ID: "p3000a", Seq: q[:3000]},
		{ID: "p3000b", Seq: q[:3000]},
		{ID: "full", Seq: q},
		{ID: "random", Seq: randSeq(r, 6000)},
		{ID: "p2000", Seq: q[:2000]},
	}
	return db, q
}

func TestRanking(t *testing.T) {
	db, q := rankingRecords()
	idx := Build(db, newSketcher(t, sketch.TypeMinimizer, 15, 5), nil)

	hits := idx.Search(q, 10, 0)
	expected := []string{"full", "p3000a", "p3000b", "p2000", "p1000"}
	if len(hits) != len(expected) {
		t.Fatalf("%d hits expected, %d returned: %+v", len(expected), len(hits), hits)
	}
	for i, h := range hits {
		if h.DBID != expected[i] {
			t.Errorf("#%d: %s expected, %s returned", i, expected[i], h.DBID)
		}
		if i > 0 && hits[i-1].SharedHashes < h.SharedHashes {
			t.Errorf("hits are not sorted by shared hashes")
		}
	}
	if hits[1].SharedHashes != hits[2].SharedHashes {
		t.Errorf("identical records should have the same shared hashes")
	}

	for topN := 1; topN <= 6; topN++ {
		hits = idx.Search(q, topN, 0)
		n := topN
		if n > len(expected) {
			n = len(expected)
		}
		if len(hits) != n {
			t.Errorf("top %d: %d hits returned", topN, len(hits))
			continue
		}
		for i, h := range hits {
			if h.DBID != expected[i] {
				t.Errorf("top %d, #%d: %s expected, %s returned", topN, i, expected[i], h.DBID)
			}
		}
	}
}

func TestMinScore(t *testing.T) {
	db, q := rankingRecords()
	idx := Build(db, newSketcher(t, sketch.TypeMinimizer, 15, 5), nil)

	minScore := 0.4
	hits := idx.Search(q, 10, minScore)
	if len(hits) == 0 {
		t.Fatalf("hits expected")
	}
	for _, h := range hits {
		if h.Score < minScore {
			t.Errorf("hit with score < %f: %+v", minScore, h)
		}
		if h.DBID == "p1000" || h.DBID == "p2000" {
			t.Errorf("hit should be filtered out: %+v", h)
		}
	}

	if hits = idx.Search(q, 10, 1); len(hits) != 1 || hits[0].DBID != "full" {
		t.Errorf("only the full-length record expected with min score 1: %+v", hits)
	}
}

func TestQueryOrder(t *testing.T) {
	db := testRecords(30, 4)
	idx := Build(db, newSketcher(t, sketch.TypeClosedSyncmer, 15, 5), nil)

	r := rand.New(rand.NewSource(5))
	queries := make([]*Record, 0, 300)
	expected := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		j := r.Intn(len(db))
		id := fmt.Sprintf("q%d", i)
		if i%7 == 0 { // too short, no result
			queries = append(queries, &Record{ID: id, Seq: db[j].Seq[:10]})
			continue
		}
		queries = append(queries, &Record{ID: id, Seq: db[j].Seq})
		expected = append(expected, id)
	}

	var n int
	results := idx.Classify(queries, &SearchOptions{TopN: 3, Threads: 8, Progress: func() {}})
	if len(results) != len(expected) {
		t.Fatalf("%d results expected, %d returned", len(expected), len(results))
	}
	for i, res := range results {
		if res.QueryID != expected[i] {
			t.Errorf("#%d: %s expected, %s returned", i, expected[i], res.QueryID)
			n++
		}
		if len(res.Hits) == 0 || len(res.Hits) > 3 {
			t.Errorf("%s: unexpected number of hits: %d", res.QueryID, len(res.Hits))
		}
		if n > 5 {
			break
		}
	}
}

func TestSelectTopN(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	for round := 0; round < 200; round++ {
		m := 1 + r.Intn(300)
		cands := make([]candidate, m)
		for i := range cands {
			cands[i] = candidate{idx: i, count: 1 + r.Intn(10)} // many ties
		}
		r.Shuffle(m, func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })

		sorted := append([]candidate{}, cands...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].before(sorted[j]) })

		n := 1 + r.Intn(m)
		selectTopN(cands, n)
		top := cands[:n]
		sort.Slice(top, func(i, j int) bool { return top[i].before(top[j]) })

		for i := 0; i < n; i++ {
			if top[i] != sorted[i] {
				t.Fatalf("round %d, top %d of %d: #%d %+v expected, %+v returned",
					round, n, m, i, sorted[i], top[i])
			}
		}
	}
}

func TestCheckSearchOptions(t *testing.T) {
	tests := []struct {
		opt SearchOptions
		ok  bool
	}{
		{SearchOptions{TopN: 1, MinScore: 0}, true},
		{SearchOptions{TopN: 5, MinScore: 1}, true},
		{SearchOptions{TopN: 0, MinScore: 0.5}, false},
		{SearchOptions{TopN: 5, MinScore: -0.1}, false},
		{SearchOptions{TopN: 5, MinScore: 1.1}, false},
	}
	for i, test := range tests {
		err := CheckSearchOptions(&test.opt)
		if (err == nil) != test.ok {
			t.Errorf("#%d: unexpected result: %v", i, err)
		}
	}
}
