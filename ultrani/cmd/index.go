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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shenwei356/UltrANI/ultrani/index"
	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Generate an index from FASTA/Q sequences",
	Long: `Generate an index from FASTA/Q sequences

Input:
  1. Input plain or compressed FASTA/Q files can be given via positional
     arguments or the flag -X/--infile-list with the list of input files,
  2. Or a directory containing sequence files via the flag -I/--in-dir,
     with multiple-level sub-directories allowed. A regular expression
     for matching sequencing files is available via the flag -r/--file-regexp.

  Every sequence is a database record, identified by the sequence ID.
  Sequence IDs do not need to be unique.

Sketching algorithms (--sketch):
  minimizer        the k-mer with the minimal hash in every window of w k-mers.
  closed-syncmer   k-mers whose minimal s-mer is at the start or end,
                   s = max(1, k-w-1). Since s can not be smaller than 1,
                   any w >= k-2 gives the same sketch as w = k-2.
  open-syncmer     k-mers whose minimal s-mer is in the middle.
  lexichash        k-mers captured by w LexicHash masks (k <= 32),
                   w smaller than 64 is raised to 64.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		verbose := opt.Verbose || opt.Log2File
		timeStart := time.Now()
		defer func() {
			if verbose {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------
		// basic flags

		outDir := getFlagString(cmd, "out-dir")
		force := getFlagBool(cmd, "force")
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir is needed"))
		}
		outDir = filepath.Clean(outDir)

		inDir := getFlagString(cmd, "in-dir")
		if inDir != "" && filepath.Clean(inDir) == outDir {
			checkError(fmt.Errorf("intput and output paths should not be the same: %s", outDir))
		}

		bopt := getIndexBuildingOptions(cmd, opt)
		sk, err := CheckIndexBuildingOptions(bopt)
		checkError(err)

		// ---------------------------------------------------------------
		// input files

		if verbose {
			log.Infof("UltrANI v%s", VERSION)
			log.Info()
			log.Info("checking input files ...")
		}

		files := getInputFiles(cmd, args, opt)

		if verbose {
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			logSketchParameters(sk)
			log.Infof("output directory: %s", outDir)
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
			log.Infof("building index ...")
		}

		// ---------------------------------------------------------------
		// index

		idx, err := BuildIndex(files, sk, bopt)
		checkError(err)

		if verbose {
			log.Infof("  %d hashes from %d sequences", idx.NumHashes(), idx.NumRecords())
			log.Infof("saving index ...")
		}

		err = idx.WriteToPath(outDir, force)
		if errors.Is(err, index.ErrDirNotEmpty) {
			checkError(fmt.Errorf("output directory not empty: %s, use --force to overwrite", outDir))
		}
		if err != nil {
			checkError(fmt.Errorf("failed to save the index: %s", err))
		}

		if verbose {
			log.Infof("index saved: %s", outDir)
		}
	},
}

func init() {
	RootCmd.AddCommand(indexCmd)

	addInputFlags(indexCmd)
	addSketchFlags(indexCmd)

	indexCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory.`))

	indexCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existed output directory.`))

	indexCmd.SetUsageTemplate(usageTemplate("[--sketch <type>] [-k <k>] [-w <w>] {[-I <seqs dir>] | <seq files> | -X <file list>} -O <out dir>"))
}
