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
	"time"

	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Index database sequences and search queries in one pass",
	Long: `Index database sequences and search queries in one pass

The index is built in memory and not saved, which is handy for small
databases. Please use "ultrani index" and "ultrani search" to reuse an index.

Database sequences are given the same way as in "ultrani index",
and query files are given via the flag -q/--query.

The output format is the same as that of "ultrani search".

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
		// flags

		queryFiles := getFlagStringSlice(cmd, "query")
		if len(queryFiles) == 0 {
			checkError(fmt.Errorf("flag -q/--query needed"))
		}
		queryFiles = getFileList(queryFiles, true)

		bopt := getIndexBuildingOptions(cmd, opt)
		sk, err := CheckIndexBuildingOptions(bopt)
		checkError(err)

		sopt := getSearchingOptions(cmd, opt)

		// ---------------------------------------------------------------
		// database

		if outputLog {
			log.Infof("UltrANI v%s", VERSION)
			log.Info()
			log.Info("checking database files ...")
		}

		files := getInputFiles(cmd, args, opt)
		for _, file := range files {
			if isStdin(file) {
				for _, qfile := range queryFiles {
					if isStdin(qfile) {
						checkError(fmt.Errorf("stdin can not be used for both database and query sequences"))
					}
				}
			}
		}

		if outputLog {
			log.Info()
			logSketchParameters(sk)
			log.Info()
			log.Infof("building index ...")
		}

		idx, err := BuildIndex(files, sk, bopt)
		checkError(err)

		if outputLog {
			log.Infof("  %d hashes from %d sequences", idx.NumHashes(), idx.NumRecords())
			log.Info()
			log.Infof("searching with %d queries files: %s", len(queryFiles), queryFiles)
			log.Infof("  number of hits: %d, minimum score: %f", sopt.TopN, sopt.MinScore)
		}

		// ---------------------------------------------------------------
		// search

		searchAndOutput(idx, queryFiles, outFile, opt.CompressionLevel, sopt)
	},
}

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceP("query", "q", []string{},
		formatFlagUsage(`Query sequence files, "-" for stdin.`))

	addInputFlags(runCmd)
	addSketchFlags(runCmd)
	addSearchFlags(runCmd)

	runCmd.SetUsageTemplate(usageTemplate("[--sketch <type>] [-k <k>] [-w <w>] -q <query files> {[-I <seqs dir>] | <seq files> | -X <file list>} [-o out.tsv.gz]"))
}
