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

package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"github.com/pelletier/go-toml/v2"
	"github.com/shenwei356/UltrANI/ultrani/sketch"
	"github.com/shenwei356/UltrANI/ultrani/util"
	"github.com/shenwei356/util/pathutil"
	"github.com/shenwei356/xopen"
	"github.com/twotwotwo/sorts/sortutil"
)

var be = binary.BigEndian

// Magic number for checking file format
var Magic = [8]byte{'r', 'e', 'v', 'i', 'n', 'd', 'e', 'x'}

// MainVersion is use for checking compatibility
var MainVersion uint8 = 0

// MinorVersion is less important
var MinorVersion uint8 = 1

// ErrInvalidFileFormat means invalid file format.
var ErrInvalidFileFormat = errors.New("reverse index: invalid binary format")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.New("reverse index: broken file")

// ErrVersionMismatch means version mismatch between files and program.
var ErrVersionMismatch = errors.New("reverse index: version mismatch")

// ErrDirNotEmpty means the output directory is not empty.
var ErrDirNotEmpty = errors.New("reverse index: output directory not empty")

// ErrPWDAsOutDir means the current directory is used as the output directory.
var ErrPWDAsOutDir = errors.New("reverse index: current directory cant't be the output dir")

// ErrInvalidIndexDir means the path is not a valid index directory.
var ErrInvalidIndexDir = errors.New("reverse index: invalid index directory")

// InfoFile contains the parameters and summary information.
const InfoFile = "info.toml"

// IDListFile defines the name of the ID list file.
// Users can edit the file to show different names,
// but please do not change the order of IDs.
const IDListFile = "IDs.txt"

// HashesFile stores the hashes and their records.
const HashesFile = "hashes.bin"

// Info is the summary information of an index, saved in InfoFile.
type Info struct {
	MainVersion  uint8 `toml:"main-version"`
	MinorVersion uint8 `toml:"minor-version"`

	Sketch string `toml:"sketch"`
	K      int    `toml:"kmer"`
	W      int    `toml:"window"`

	Records int `toml:"records"`
	Hashes  int `toml:"hashes"`
}

// Info returns the summary information.
func (idx *Index) Info() *Info {
	return &Info{
		MainVersion:  MainVersion,
		MinorVersion: MinorVersion,
		Sketch:       idx.sk.Type().String(),
		K:            idx.sk.K(),
		W:            idx.sk.W(),
		Records:      len(idx.ids),
		Hashes:       idx.nEntries,
	}
}

// WriteToPath writes an index to a directory.
//
// Files:
//
//	Info file, TOML
//	ID list file, plain text
//	Hashes file, binary
func (idx *Index) WriteToPath(outDir string, overwrite bool) error {
	pwd, _ := os.Getwd()
	if outDir == "./" || outDir == "." || pwd == filepath.Clean(outDir) {
		return ErrPWDAsOutDir
	}

	existed, err := pathutil.DirExists(outDir)
	if err != nil {
		return err
	}
	if existed {
		empty, err := pathutil.IsEmpty(outDir)
		if err != nil {
			return err
		}
		if !empty && !overwrite {
			return ErrDirNotEmpty
		}
		err = os.RemoveAll(outDir)
		if err != nil {
			return err
		}
	}
	err = os.MkdirAll(outDir, 0777)
	if err != nil {
		return err
	}

	err = idx.writeIDlist(filepath.Join(outDir, IDListFile))
	if err != nil {
		return err
	}

	err = idx.writeHashes(filepath.Join(outDir, HashesFile))
	if err != nil {
		return err
	}

	// the info file is the last one, a directory without it is incomplete.
	data, err := toml.Marshal(idx.Info())
	if err != nil {
		return err
	}
	err = os.WriteFile(filepath.Join(outDir, InfoFile), data, 0644)
	if err != nil {
		return err
	}

	idx.path = outDir
	return nil
}

// NewFromPath reads an index from a directory.
func NewFromPath(outDir string) (*Index, error) {
	ok, err := pathutil.DirExists(outDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("index path not found: %s", outDir)
	}

	// info file
	fileInfo := filepath.Join(outDir, InfoFile)
	ok, err = pathutil.Exists(fileInfo)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: info file not found: %s", ErrInvalidIndexDir, fileInfo)
	}
	info, err := readInfo(fileInfo)
	if err != nil {
		return nil, err
	}
	if info.MainVersion != MainVersion {
		return nil, ErrVersionMismatch
	}

	t, err := sketch.ParseType(info.Sketch)
	if err != nil {
		return nil, err
	}
	sk, err := sketch.New(t, info.K, info.W)
	if err != nil {
		return nil, err
	}

	// ID list
	ids, err := readIDlist(filepath.Join(outDir, IDListFile))
	if err != nil {
		return nil, err
	}
	if len(ids) != info.Records {
		return nil, fmt.Errorf("%w: %d IDs in %s, %d records in %s",
			ErrInvalidIndexDir, len(ids), IDListFile, info.Records, InfoFile)
	}

	idx := newIndex(sk, ids, make([]int, len(ids)))
	err = idx.readHashes(filepath.Join(outDir, HashesFile))
	if err != nil {
		return nil, err
	}
	if idx.nEntries != info.Hashes {
		return nil, fmt.Errorf("%w: %d hashes in %s, %d in %s",
			ErrInvalidIndexDir, idx.nEntries, HashesFile, info.Hashes, InfoFile)
	}

	idx.path = outDir
	return idx, nil
}

func readInfo(file string) (*Info, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	info := &Info{}
	err = toml.Unmarshal(data, info)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidIndexDir, err)
	}
	return info, nil
}

func (idx *Index) writeIDlist(file string) (err error) {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}
	defer func() {
		// the buffered data is flushed in Close
		if err2 := outfh.Close(); err == nil {
			err = err2
		}
	}()

	return idx.writeIDs(outfh)
}

// writeIDs writes record IDs, one per line.
func (idx *Index) writeIDs(w io.Writer) error {
	var err error
	for _, id := range idx.ids {
		_, err = io.WriteString(w, id)
		if err != nil {
			return err
		}
		_, err = w.Write(newline)
		if err != nil {
			return err
		}
	}
	return nil
}

var newline = []byte{'\n'}

func readIDlist(file string) ([]string, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	ids := make([]string, 0, 1024)
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		ids = append(ids, strings.TrimRight(scanner.Text(), "\r\n"))
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// writeHashes writes hashes and their records.
//
// Header (24 bytes):
//
//	Magic number, 8 bytes, revindex
//	Main and minor versions, 2 bytes
//	Sketch type, 1 byte
//	Blank, 5 bytes
//	Number of hashes: 8 bytes
//
// Data: hashes in ascending order and their records.
//
//	Control byte for 2 numbers, 1 byte
//	Delta of the hash and size of the record set, 2-16 bytes
//	Record set, a serialized roaring bitmap.
//
// Sketch sizes of the records, 4 bytes each.
func (idx *Index) writeHashes(file string) (err error) {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}
	defer func() {
		if err2 := outfh.Close(); err == nil {
			err = err2
		}
	}()

	return idx.encodeHashes(outfh)
}

// encodeHashes writes the data of HashesFile.
func (idx *Index) encodeHashes(outfh io.Writer) error {
	err := binary.Write(outfh, be, Magic)
	if err != nil {
		return err
	}
	err = binary.Write(outfh, be, [8]uint8{MainVersion, MinorVersion, uint8(idx.sk.Type())})
	if err != nil {
		return err
	}
	err = binary.Write(outfh, be, uint64(idx.nEntries))
	if err != nil {
		return err
	}

	hashes := idx.Hashes()
	sortutil.Uint64s(hashes)

	buf := make([]byte, 17)
	var ctrl byte
	var n int
	var pre uint64
	var data []byte
	rb := roaring.New()
	for _, h := range hashes {
		rb.Clear()
		bs := idx.Get(h)
		for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
			rb.Add(uint32(i))
		}
		rb.RunOptimize()
		data, err = rb.ToBytes()
		if err != nil {
			return err
		}

		ctrl, n = util.PutUint64s(buf[1:], h-pre, uint64(len(data)))
		buf[0] = ctrl
		_, err = outfh.Write(buf[:n+1])
		if err != nil {
			return err
		}
		_, err = outfh.Write(data)
		if err != nil {
			return err
		}

		pre = h
	}

	for _, s := range idx.sizes {
		err = binary.Write(outfh, be, uint32(s))
		if err != nil {
			return err
		}
	}

	return nil
}

func (idx *Index) readHashes(file string) error {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return err
	}
	defer fh.Close()

	r := bufio.NewReader(fh)

	// ---------------------------------------------------------------
	// header

	buf := make([]byte, 16)

	_, err = io.ReadFull(r, buf[:8])
	if err != nil {
		return err
	}
	if !bytes.Equal(buf[:8], Magic[:]) {
		return ErrInvalidFileFormat
	}

	var meta [8]uint8
	err = binary.Read(r, be, &meta)
	if err != nil {
		return err
	}
	if meta[0] != MainVersion {
		return ErrVersionMismatch
	}
	if sketch.Type(meta[2]) != idx.sk.Type() {
		return fmt.Errorf("%w: sketch type in %s: %s, in %s: %s", ErrInvalidIndexDir,
			HashesFile, sketch.Type(meta[2]), InfoFile, idx.sk.Type())
	}

	var nEntries uint64
	err = binary.Read(r, be, &nEntries)
	if err != nil {
		return err
	}

	// ---------------------------------------------------------------
	// hashes

	nRecords := uint32(len(idx.ids))
	width := uint(nRecords)
	for i := range idx.shards {
		idx.shards[i] = make(map[uint64]*bitset.BitSet, int(nEntries/NShards)+1)
	}

	maxSize := maxRoaringBytes(nRecords)
	var ctrl byte
	var nBytes int
	var h, delta, size uint64
	var data []byte
	var v uint32
	rb := roaring.New()
	for j := uint64(0); j < nEntries; j++ {
		ctrl, err = r.ReadByte()
		if err != nil {
			return ErrBrokenFile
		}
		nBytes = util.CtrlByte2ByteLengthsUint64(ctrl)
		_, err = io.ReadFull(r, buf[:nBytes])
		if err != nil {
			return ErrBrokenFile
		}
		delta, size, _ = util.Uint64s(ctrl, buf[:nBytes])
		h += delta

		if size > maxSize {
			return fmt.Errorf("%w: record set of %d bytes, should be <= %d", ErrBrokenFile, size, maxSize)
		}
		if uint64(cap(data)) < size {
			data = make([]byte, size)
		}
		data = data[:size]
		_, err = io.ReadFull(r, data)
		if err != nil {
			return ErrBrokenFile
		}

		rb.Clear()
		err = rb.UnmarshalBinary(data)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBrokenFile, err)
		}

		bs := bitset.New(width)
		it := rb.Iterator()
		for it.HasNext() {
			v = it.Next()
			if v >= nRecords {
				return fmt.Errorf("%w: record position %d >= %d", ErrBrokenFile, v, nRecords)
			}
			bs.Set(uint(v))
		}
		idx.shards[h>>shardShift][h] = bs
	}
	idx.nEntries = int(nEntries)

	// ---------------------------------------------------------------
	// sketch sizes

	var s uint32
	for i := range idx.sizes {
		err = binary.Read(r, be, &s)
		if err != nil {
			return ErrBrokenFile
		}
		idx.sizes[i] = int(s)
	}

	return nil
}

// maxRoaringBytes returns the upper bound of the serialized size of a roaring
// bitmap with values in [0, n): every 2^16 values take one container of at
// most 8194 bytes (runs) plus its key, cardinality, offset and run flag.
func maxRoaringBytes(n uint32) uint64 {
	c := uint64(n)>>16 + 1
	return 8 + c*(8194+12) + (c+7)>>3
}
