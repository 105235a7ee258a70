/*
 * source.go, part of gotop.
 *
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston,
 * MA 02110-1301, USA.
 */

package forcefield

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// compression returns the compression format of a file, from its extension:
// "gz", "zst" or "" for plain files.
func compression(fname string) string {
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".gz":
		return "gz"
	case ".zst", ".zstd":
		return "zst"
	default:
		return ""
	}
}

// zstd.Decoder doesn't implement io.ReadCloser.
type zstdCloser struct {
	*zstd.Decoder
}

func (Z zstdCloser) Close() error {
	Z.Decoder.Close()
	return nil
}

type source struct {
	io.Reader
	dec io.Closer
	f   *os.File
}

func (S *source) Close() error {
	if S.dec != nil {
		S.dec.Close()
	}
	return S.f.Close()
}

// openSource opens fname for reading, decompressing it first if its extension
// is .gz or .zst.
func openSource(fname string) (io.ReadCloser, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	reader := bufio.NewReader(f)
	switch compression(fname) {
	case "gz":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &source{Reader: gz, dec: gz, f: f}, nil
	case "zst":
		z, err := zstd.NewReader(reader)
		if err != nil {
			f.Close()
			return nil, err
		}
		zc := zstdCloser{z}
		return &source{Reader: zc, dec: zc, f: f}, nil
	default:
		return &source{Reader: reader, f: f}, nil
	}
}

type sink struct {
	io.Writer
	enc io.WriteCloser
	buf *bufio.Writer
	f   *os.File
}

// Close flushes everything and closes the file. Errors on the way
// take precedence over the ones closing the file.
func (S *sink) Close() error {
	var err error
	if S.enc != nil {
		err = S.enc.Close()
	}
	if ferr := S.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := S.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// createSink creates fname for writing, compressing the output if the
// extension is .gz or .zst.
func createSink(fname string) (io.WriteCloser, error) {
	f, err := os.Create(fname)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	S := &sink{Writer: buf, buf: buf, f: f}
	switch compression(fname) {
	case "gz":
		gz, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
		if err != nil {
			f.Close()
			return nil, err
		}
		S.Writer, S.enc = gz, gz
	case "zst":
		z, err := zstd.NewWriter(buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			f.Close()
			return nil, err
		}
		S.Writer, S.enc = z, z
	}
	return S, nil
}
