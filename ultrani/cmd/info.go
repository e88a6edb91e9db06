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
	"github.com/pkg/errors"
	"github.com/shenwei356/UltrANI/ultrani/index"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts/sortutil"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information of an index",
	Long: `Show information of an index

Output:
  1. Parameters and sizes of the index, and statistics of sketch sizes
     of database sequences, in tab-delimited format.
  2. With -a/--all, the sketch size of each database sequence is
     reported instead.
  3. A histogram of sketch sizes can be plotted via --plot,
     the format is decided by the file extension (.png, .jpg, .pdf, .svg).

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

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

		dbDir := getFlagString(cmd, "index")
		if dbDir == "" {
			checkError(fmt.Errorf("flag -d/--index needed"))
		}
		dbDir = expandPath(dbDir)
		all := getFlagBool(cmd, "all")
		plotFile := getFlagString(cmd, "plot")
		bins := getFlagPositiveInt(cmd, "bins")

		idx, err := index.NewFromPath(dbDir)
		checkError(err)

		outfh, closeAll, err := outStream(outFile, opt.CompressionLevel)
		checkError(err)

		sizes := idx.SketchSizes()
		ids := idx.IDs()

		if all {
			fmt.Fprintln(outfh, "id\tsketch_size")
			for i, id := range ids {
				fmt.Fprintf(outfh, "%s\t%d\n", id, sizes[i])
			}
		} else {
			info := idx.Info()
			s := newSizeStats(sizes)

			fmt.Fprintf(outfh, "path\t%s\n", dbDir)
			fmt.Fprintf(outfh, "version\tv%d.%d\n", info.MainVersion, info.MinorVersion)
			fmt.Fprintf(outfh, "file_size\t%s\n", humanize.IBytes(dirSize(dbDir)))
			fmt.Fprintf(outfh, "sketch\t%s\n", info.Sketch)
			fmt.Fprintf(outfh, "kmer\t%d\n", info.K)
			fmt.Fprintf(outfh, "window\t%d\n", info.W)
			fmt.Fprintf(outfh, "records\t%d\n", info.Records)
			fmt.Fprintf(outfh, "hashes\t%d\n", info.Hashes)
			fmt.Fprintf(outfh, "sketch_size_min\t%.0f\n", s.Min)
			fmt.Fprintf(outfh, "sketch_size_q1\t%.0f\n", s.Q1)
			fmt.Fprintf(outfh, "sketch_size_median\t%.0f\n", s.Median)
			fmt.Fprintf(outfh, "sketch_size_q3\t%.0f\n", s.Q3)
			fmt.Fprintf(outfh, "sketch_size_max\t%.0f\n", s.Max)
			fmt.Fprintf(outfh, "sketch_size_mean\t%.2f\n", s.Mean)
			fmt.Fprintf(outfh, "sketch_size_stdev\t%.2f\n", s.Stdev)
		}
		checkError(closeAll())

		if plotFile != "" {
			err = plotSketchSizes(sizes, bins, plotFile)
			checkError(errors.Wrap(err, "plot histogram"))
			if outputLog {
				log.Infof("histogram of sketch sizes saved to: %s", plotFile)
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringP("index", "d", "",
		formatFlagUsage(`Index directory created by "ultrani index".`))

	infoCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	infoCmd.Flags().BoolP("all", "a", false,
		formatFlagUsage(`Output the sketch size of each database sequence.`))

	infoCmd.Flags().StringP("plot", "p", "",
		formatFlagUsage(`Plot a histogram of sketch sizes to this file.`))

	infoCmd.Flags().IntP("bins", "b", 50,
		formatFlagUsage(`Number of bins of the histogram.`))

	infoCmd.SetUsageTemplate(usageTemplate("-d <index path> [-a] [-p hist.png]"))
}

// sizeStats contains the statistics of sketch sizes.
type sizeStats struct {
	Min, Q1, Median, Q3, Max float64
	Mean, Stdev              float64
}

func newSizeStats(sizes []int) sizeStats {
	var s sizeStats
	if len(sizes) == 0 {
		return s
	}

	x := make([]float64, len(sizes))
	for i, v := range sizes {
		x[i] = float64(v)
	}
	sortutil.Float64s(x)

	s.Min = floats.Min(x)
	s.Max = floats.Max(x)
	s.Q1 = stat.Quantile(0.25, stat.Empirical, x, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.Q3 = stat.Quantile(0.75, stat.Empirical, x, nil)
	if len(x) > 1 {
		s.Mean, s.Stdev = stat.MeanStdDev(x, nil)
	} else {
		s.Mean = x[0]
	}
	return s
}

func plotSketchSizes(sizes []int, bins int, file string) error {
	if len(sizes) == 0 {
		return fmt.Errorf("no records in the index")
	}

	values := make(plotter.Values, len(sizes))
	for i, v := range sizes {
		values[i] = float64(v)
	}

	p := plot.New()
	p.Title.Text = "Sketch sizes of database sequences"
	p.X.Label.Text = "Sketch size"
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}

// dirSize returns the total size of files in a directory.
func dirSize(dir string) uint64 {
	var size uint64
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		fi, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || fi.IsDir() {
			continue
		}
		size += uint64(fi.Size())
	}
	return size
}
