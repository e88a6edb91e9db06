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
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/UltrANI/ultrani/index"
	"github.com/shenwei356/UltrANI/ultrani/sketch"
	"github.com/spf13/cobra"
)

// IndexBuildingOptions contains the options for building an index.
type IndexBuildingOptions struct {
	// general
	NumCPUs int
	Verbose bool // show log and progress bar

	// sketch
	SketchType sketch.Type
	K          int // k-mer size
	W          int // window size, or the number of masks for lexichash

	// sequences
	ReSeqExclude []*regexp.Regexp
}

// CheckIndexBuildingOptions checks the options, and returns a sketcher.
func CheckIndexBuildingOptions(opt *IndexBuildingOptions) (sketch.Sketcher, error) {
	if opt.NumCPUs < 1 {
		return nil, fmt.Errorf("invalid number of threads: %d, should be >= 1", opt.NumCPUs)
	}
	return sketch.New(opt.SketchType, opt.K, opt.W)
}

// BuildIndex reads sequences from files and builds an index in memory.
func BuildIndex(files []string, sk sketch.Sketcher, opt *IndexBuildingOptions) (*index.Index, error) {
	records, err := readRecords(files, opt.NumCPUs, opt.ReSeqExclude)
	if err != nil {
		return nil, err
	}
	if opt.Verbose {
		log.Infof("  %d database sequences loaded", len(records))
	}

	bopt := &index.BuildOptions{Threads: opt.NumCPUs}
	if opt.Verbose && len(records) > 0 {
		pbs, bar := newProgressBar(len(records), "indexed sequences: ")
		bopt.Progress = bar.Increment
		defer pbs.Wait()
	}

	return index.Build(records, sk, bopt), nil
}

// getIndexBuildingOptions parses sketch and sequence filtering flags.
func getIndexBuildingOptions(cmd *cobra.Command, opt *Options) *IndexBuildingOptions {
	t, err := sketch.ParseType(getFlagString(cmd, "sketch"))
	checkError(errors.Wrap(err, "flag --sketch"))

	reSeqNameStrs := getFlagStringSlice(cmd, "seq-name-filter")
	reSeqNames := make([]*regexp.Regexp, 0, len(reSeqNameStrs))
	for _, kw := range reSeqNameStrs {
		re, err := compileFileRegexp(kw)
		if err != nil {
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching sequence header: %s", kw))
		}
		reSeqNames = append(reSeqNames, re)
	}

	return &IndexBuildingOptions{
		NumCPUs: opt.NumCPUs,
		Verbose: opt.Verbose,

		SketchType: t,
		K:          getFlagPositiveInt(cmd, "kmer"),
		W:          getFlagPositiveInt(cmd, "window"),

		ReSeqExclude: reSeqNames,
	}
}

// addSketchFlags adds flags for choosing the sketching algorithm.
func addSketchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("sketch", "", sketch.TypeMinimizer.String(),
		formatFlagUsage(fmt.Sprintf(`Sketching algorithm. Available values: %s.`, strings.Join(sketch.TypeNames(), ", "))))

	cmd.Flags().IntP("kmer", "k", 15,
		formatFlagUsage(`K-mer size. It needs to be <= 32 for lexichash.`))

	cmd.Flags().IntP("window", "w", 7,
		formatFlagUsage(`Window size of minimizers and syncmers, or the number of masks (>= 64) for lexichash.`))

	cmd.Flags().StringSliceP("seq-name-filter", "B", []string{},
		formatFlagUsage(`List of regular expressions for filtering out database sequences by header/name, case ignored.`))
}

// logSketchParameters logs the sketching parameters.
func logSketchParameters(sk sketch.Sketcher) {
	log.Infof("sketch: %s", sk.Type())
	log.Infof("  k-mer size: %d", sk.K())
	if sk.Type() == sketch.TypeLexicHash {
		log.Infof("  number of masks: %d", sk.W())
	} else {
		log.Infof("  window size: %d", sk.W())
	}
}
