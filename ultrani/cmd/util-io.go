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
	"bufio"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

const bufferSize = 65536

// outStream creates an output stream, gzipped if the file ends with ".gz".
// Please call the returned function to flush and close all writers.
func outStream(file string, level int) (*bufio.Writer, func() error, error) {
	var w *os.File
	if isStdin(file) {
		w = os.Stdout
	} else {
		var err error
		w, err = os.Create(file)
		if err != nil {
			return nil, nil, err
		}
	}

	if !strings.HasSuffix(strings.ToLower(file), ".gz") {
		outfh := bufio.NewWriterSize(w, bufferSize)
		return outfh, func() error {
			if err := outfh.Flush(); err != nil {
				return err
			}
			return closeFile(w)
		}, nil
	}

	gw, err := pgzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, nil, err
	}
	outfh := bufio.NewWriterSize(gw, bufferSize)
	return outfh, func() error {
		if err := outfh.Flush(); err != nil {
			return err
		}
		if err := gw.Close(); err != nil {
			return err
		}
		return closeFile(w)
	}, nil
}

func closeFile(w *os.File) error {
	if w == os.Stdout {
		return nil
	}
	return w.Close()
}
