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
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shenwei356/UltrANI/ultrani/index"
	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search sequences against an index",
	Long: `Search sequences against an index

Attention:
  1. Input should be (gzipped) FASTA or FASTQ records from files or stdin.
  2. Queries are sketched with the same algorithm and parameters of the index.
  3. Queries without any hits are not reported.

Output format:
  Tab-delimited format with a header line.

    1. query_id,       Query sequence ID.
    2. subject_id,     Database sequence ID.
    3. shared_hashes,  Number of hashes shared by the query and subject sketches.
    4. score,          shared_hashes / (size of the query sketch), with 6 decimals.

Result ordering:
  1. Queries are in the input order.
  2. Hits of a query are sorted in descending order of shared_hashes,
     ties are broken by the order of sequences in the index.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		outFile := getFlagString(cmd, "out-file")

		fhLog := addLogForOutput(opt, outFile)
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------

		dbDir := getFlagString(cmd, "index")
		if dbDir == "" {
			checkError(fmt.Errorf("flag -d/--index needed"))
		}
		dbDir = expandPath(dbDir)

		sopt := getSearchingOptions(cmd, opt)

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if outputLog && len(files) == 1 && isStdin(files[0]) {
			log.Info("  no files given, reading from stdin")
		}

		// ---------------------------------------------------------------

		if outputLog {
			log.Infof("UltrANI v%s", VERSION)
			log.Info()
			log.Infof("loading index: %s", dbDir)
		}

		idx, err := index.NewFromPath(dbDir)
		checkError(err)

		if outputLog {
			if fi, err := os.Stat(filepath.Join(dbDir, index.HashesFile)); err == nil {
				log.Infof("  index size: %s", humanize.IBytes(uint64(fi.Size())))
			}
			log.Infof("  %d hashes from %d sequences", idx.NumHashes(), idx.NumRecords())
			logSketchParameters(idx.Sketcher())
			log.Infof("  index loaded in %s", time.Since(timeStart))
			log.Info()
			log.Infof("searching with %d queries files: %s", len(files), files)
			log.Infof("  number of hits: %d, minimum score: %f", sopt.TopN, sopt.MinScore)
		}

		searchAndOutput(idx, files, outFile, opt.CompressionLevel, sopt)
	},
}

func init() {
	RootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("index", "d", "",
		formatFlagUsage(`Index directory created by "ultrani index".`))

	searchCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	addSearchFlags(searchCmd)

	searchCmd.SetUsageTemplate(usageTemplate("-d <index path> [query.fasta.gz ...] [-o query.tsv.gz]"))
}

// addLogForOutput adds a log file if needed, which should not be the output file.
func addLogForOutput(opt *Options, outFile string) *os.File {
	if !opt.Log2File {
		return nil
	}
	if !isStdin(outFile) {
		ro, err := filepath.Abs(outFile)
		if err != nil {
			checkError(fmt.Errorf("failed to check output file: %s", err))
		}
		rl, err := filepath.Abs(opt.LogFile)
		if err != nil {
			checkError(fmt.Errorf("failed to check log file: %s", err))
		}
		if ro == rl {
			checkError(fmt.Errorf("output file and log file should not be the same: %s", outFile))
		}
	}
	return addLog(opt.LogFile, opt.Verbose)
}
