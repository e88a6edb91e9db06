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

package cmd

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSizeStats(t *testing.T) {
	tests := []struct {
		sizes    []int
		expected sizeStats
	}{
		{nil, sizeStats{}},
		{[]int{7}, sizeStats{Min: 7, Q1: 7, Median: 7, Q3: 7, Max: 7, Mean: 7, Stdev: 0}},
		{[]int{5, 1, 4, 2, 3}, sizeStats{Min: 1, Q1: 2, Median: 3, Q3: 4, Max: 5, Mean: 3, Stdev: math.Sqrt(2.5)}},
		{[]int{10, 10, 10, 10}, sizeStats{Min: 10, Q1: 10, Median: 10, Q3: 10, Max: 10, Mean: 10, Stdev: 0}},
	}

	for i, test := range tests {
		s := newSizeStats(test.sizes)
		e := test.expected
		if s.Min != e.Min || s.Q1 != e.Q1 || s.Median != e.Median || s.Q3 != e.Q3 || s.Max != e.Max ||
			math.Abs(s.Mean-e.Mean) > 1e-9 || math.Abs(s.Stdev-e.Stdev) > 1e-9 {
			t.Errorf("#%d: expected %+v, returned %+v", i, e, s)
		}
	}
}

func TestPlotSketchSizes(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "hist.png")
	if err := plotSketchSizes([]int{10, 12, 12, 15, 20, 20, 21}, 5, file); err != nil {
		t.Fatalf("failed to plot: %s", err)
	}
	if fi, err := os.Stat(file); err != nil || fi.Size() == 0 {
		t.Errorf("plot file not created: %v", err)
	}

	if err := plotSketchSizes(nil, 5, filepath.Join(dir, "empty.png")); err == nil {
		t.Errorf("error expected for no sketch sizes")
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a"), "12345")
	writeFile(t, filepath.Join(dir, "b"), "123")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0777); err != nil {
		t.Fatal(err)
	}

	if n := dirSize(dir); n != 8 {
		t.Errorf("8 bytes expected, returned %d", n)
	}
	if n := dirSize(filepath.Join(dir, "missing")); n != 0 {
		t.Errorf("0 expected for a missing directory, returned %d", n)
	}
}
