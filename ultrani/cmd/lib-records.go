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
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"

	"github.com/shenwei356/UltrANI/ultrani/index"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// readRecords reads sequences from files in parallel, and returns them in the
// order of files and their appearance in each file.
// Sequences with empty IDs or matching any of reSeqExclude are skipped.
func readRecords(files []string, threads int, reSeqExclude []*regexp.Regexp) ([]*index.Record, error) {
	if threads < 1 {
		threads = 1
	}
	recordsList := make([][]*index.Record, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	tokens := make(chan int, threads)
	for i, file := range files {
		tokens <- 1
		wg.Add(1)
		go func(i int, file string) {
			defer func() {
				wg.Done()
				<-tokens
			}()

			recordsList[i], errs[i] = readRecordsFromFile(file, reSeqExclude)
		}(i, file)
	}
	wg.Wait()

	var n int
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("read seq file %s: %s", files[i], err)
		}
		n += len(recordsList[i])
	}

	records := make([]*index.Record, 0, n)
	for _, rs := range recordsList {
		records = append(records, rs...)
	}
	return records, nil
}

func readRecordsFromFile(file string, reSeqExclude []*regexp.Regexp) ([]*index.Record, error) {
	fastxReader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return nil, err
	}
	defer fastxReader.Close()

	filterNames := len(reSeqExclude) > 0

	records := make([]*index.Record, 0, 8)
	var record *fastx.Record
	var ignoreSeq bool
	var re *regexp.Regexp
	var i int
	for {
		record, err = fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		i++

		if len(record.ID) == 0 {
			log.Warningf("skipping seq #%d in %s: empty sequence ID", i, file)
			continue
		}

		if filterNames {
			ignoreSeq = false
			for _, re = range reSeqExclude {
				if re.Match(record.Name) {
					ignoreSeq = true
					break
				}
			}
			if ignoreSeq {
				continue
			}
		}

		s := make([]byte, len(record.Seq.Seq))
		copy(s, record.Seq.Seq)
		records = append(records, &index.Record{ID: string(record.ID), Seq: s})
	}

	return records, nil
}

// newProgressBar creates a progress bar for counting processed items.
// Please call pbs.Wait() after all the items are processed.
func newProgressBar(total int, name string) (*mpb.Progress, *mpb.Bar) {
	pbs := mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
	bar := pbs.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name), C: decor.DindentRight}),
			decor.Name("", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
			decor.AverageETA(decor.ET_STYLE_GO),
			decor.OnComplete(decor.Name(""), ". done"),
		),
	)
	return pbs, bar
}
