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

	"github.com/shenwei356/UltrANI/ultrani/index"
	"github.com/spf13/cobra"
)

// SearchingOptions contains the options for searching.
type SearchingOptions struct {
	NumCPUs int
	Verbose bool

	TopN     int
	MinScore float64
}

// getSearchingOptions parses flags for ranking hits.
func getSearchingOptions(cmd *cobra.Command, opt *Options) *SearchingOptions {
	sopt := &SearchingOptions{
		NumCPUs:  opt.NumCPUs,
		Verbose:  opt.Verbose,
		TopN:     getFlagPositiveInt(cmd, "num-hits"),
		MinScore: getFlagFloat64(cmd, "min-score"),
	}
	if getFlagBool(cmd, "best-hit") {
		sopt.TopN = 1
		sopt.MinScore = 0
	}
	checkError(index.CheckSearchOptions(&index.SearchOptions{TopN: sopt.TopN, MinScore: sopt.MinScore}))
	return sopt
}

// addSearchFlags adds flags for ranking hits and output.
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	cmd.Flags().IntP("num-hits", "n", 5,
		formatFlagUsage(`Maximum number of hits to report for each query.`))

	cmd.Flags().Float64P("min-score", "s", 0,
		formatFlagUsage(`Minimum score (shared hashes / query sketch size), range: [0, 1].`))

	cmd.Flags().BoolP("best-hit", "", false,
		formatFlagUsage(`Only report the best hit of each query, equal to -n 1 -s 0.`))
}

// SearchQueries reads query sequences and searches them against the index.
func SearchQueries(idx *index.Index, files []string, opt *SearchingOptions) ([]*index.QueryResult, int, error) {
	queries, err := readRecords(files, opt.NumCPUs, nil)
	if err != nil {
		return nil, 0, err
	}
	if opt.Verbose {
		log.Infof("  %d query sequences loaded", len(queries))
	}

	sopt := &index.SearchOptions{
		TopN:     opt.TopN,
		MinScore: opt.MinScore,
		Threads:  opt.NumCPUs,
	}
	if opt.Verbose && len(queries) > 0 {
		pbs, bar := newProgressBar(len(queries), "searched queries: ")
		sopt.Progress = bar.Increment
		defer pbs.Wait()
	}

	return idx.Classify(queries, sopt), len(queries), nil
}

// writeResults writes the results in tab-delimited format.
func writeResults(w io.Writer, results []*index.QueryResult) (int, error) {
	_, err := fmt.Fprintln(w, "query_id\tsubject_id\tshared_hashes\tscore")
	if err != nil {
		return 0, err
	}

	var n int
	for _, r := range results {
		for _, h := range r.Hits {
			_, err = fmt.Fprintf(w, "%s\t%s\t%d\t%.6f\n", r.QueryID, h.DBID, h.SharedHashes, h.Score)
			if err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// searchAndOutput searches queries and writes the results to outFile.
func searchAndOutput(idx *index.Index, files []string, outFile string, level int, opt *SearchingOptions) {
	outfh, closeAll, err := outStream(outFile, level)
	checkError(err)

	results, nQueries, err := SearchQueries(idx, files, opt)
	checkError(err)

	nRows, err := writeResults(outfh, results)
	checkError(err)
	checkError(closeAll())

	if opt.Verbose {
		log.Infof("%d of %d queries matched, %d hits written to: %s", len(results), nQueries, nRows, outFile)
	}
}
