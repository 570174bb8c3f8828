// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rawfile reads a run's raw acquisition words off a little-endian
// binary file, implementing m26interp.RawWordReader. Grounded on the
// teacher's pkg/metricstore/binaryCheckpoint.go reader: bufio buffering
// over encoding/binary, fixed-width little-endian fields, no per-word
// allocation beyond the returned chunk.
package rawfile

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// defaultChunkWords is used when a non-positive chunk size is requested.
const defaultChunkWords = 1 << 16

// Reader reads fixed-size chunks of little-endian uint32 words.
type Reader struct {
	r         *bufio.Reader
	closer    io.Closer
	chunkSize int
}

// Open opens the raw word file at path for reading, in chunks of
// chunkSize words (spec §6 Config.chunk_size).
func Open(path string, chunkSize int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[RAWFILE]> open %s: %w", path, err)
	}
	return NewReader(f, chunkSize), nil
}

// NewReader wraps an existing reader. If r also implements io.Closer,
// Reader.Close closes it.
func NewReader(r io.Reader, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = defaultChunkWords
	}
	closer, _ := r.(io.Closer)
	return &Reader{r: bufio.NewReader(r), closer: closer, chunkSize: chunkSize}
}

// ReadChunk reads up to chunkSize words. It returns a short, non-empty
// chunk when the underlying stream ends mid-chunk, and io.EOF with a nil
// chunk once nothing remains, so the last non-empty chunk returned by a
// run is always the one the caller should pass buildAllEvents=true for.
func (r *Reader) ReadChunk(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := make([]uint32, 0, r.chunkSize)
	var buf [4]byte
	for len(words) < r.chunkSize {
		if _, err := io.ReadFull(r.r, buf[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				if len(words) > 0 {
					return words, nil
				}
				return nil, io.EOF
			}
			return nil, fmt.Errorf("[RAWFILE]> read word: %w", err)
		}
		words = append(words, binary.LittleEndian.Uint32(buf[:]))
	}
	return words, nil
}

// Close closes the underlying stream, if it supports it.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
