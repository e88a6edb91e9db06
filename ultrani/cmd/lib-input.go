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
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
)

// addInputFlags adds flags for giving database sequence files.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing FASTA/Q files. Directory symlinks are followed.`))

	cmd.Flags().StringP("file-regexp", "r", `\.(f[aq](st[aq])?|fna|fsa)(\.gz|\.xz|\.zst|\.bz2)?$`,
		formatFlagUsage(`Regular expression for matching sequence files in -I/--in-dir, case ignored.`))

	cmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	cmd.Flags().BoolP("skip-file-check", "S", false,
		formatFlagUsage(`Skip input file checking when given files or a file list.`))
}

// getInputFiles returns database sequence files from a directory,
// positional arguments, or a file list.
func getInputFiles(cmd *cobra.Command, args []string, opt *Options) []string {
	inDir := getFlagString(cmd, "in-dir")
	skipFileCheck := getFlagBool(cmd, "skip-file-check")

	var files []string
	var err error
	if inDir != "" {
		var isDir bool
		isDir, err = pathutil.IsDir(inDir)
		if err != nil {
			checkError(errors.Wrapf(err, "checking -I/--in-dir"))
		}
		if !isDir {
			checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
		}

		reFileStr := getFlagString(cmd, "file-regexp")
		var reFile *regexp.Regexp
		reFile, err = compileFileRegexp(reFileStr)
		checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))

		files, err = getFileListFromDir(filepath.Clean(inDir), reFile, opt.NumCPUs)
		if err != nil {
			checkError(errors.Wrapf(err, "walking dir: %s", inDir))
		}
		if len(files) == 0 {
			log.Warningf("  no files matching regular expression: %s", reFileStr)
		}
	} else {
		files = getFileListFromArgsAndFile(cmd, args, !skipFileCheck, "infile-list", !skipFileCheck)
		if !skipFileCheck {
			checkSeqFiles(files...)
		}
		if opt.Verbose && len(files) == 1 && isStdin(files[0]) {
			log.Info("  no files given, reading from stdin")
		}
	}

	if len(files) < 1 {
		checkError(fmt.Errorf("FASTA/Q files needed"))
	} else if opt.Verbose {
		log.Infof("  %d input file(s) given", len(files))
	}
	return files
}
