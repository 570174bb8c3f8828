// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command m26interp drives m26interp.Interpreter over a recorded run,
// reading raw acquisition words from a local file or an S3 bucket and
// writing the resulting hit table to a SQLite database and/or an S3
// archive. It is glue only: every decision about frames, triggers, and
// events lives in pkg/m26interp, per spec §1 ("command-line glue" is
// explicitly an external collaborator, not part of the core).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/silab-bonn/m26interp/internal/collab/rawfile"
	"github.com/silab-bonn/m26interp/internal/collab/s3archive"
	"github.com/silab-bonn/m26interp/internal/collab/sqlitehits"
	"github.com/silab-bonn/m26interp/pkg/log"
	"github.com/silab-bonn/m26interp/pkg/m26interp"

	"github.com/prometheus/client_golang/prometheus"
)

// ProgramConfig is the on-disk configuration shape for this command,
// following the teacher's cmd/cc-backend/main.go convention of a flat
// JSON-tagged struct with package-level defaults, overlaid by flags.
type ProgramConfig struct {
	RawFile   string            `json:"raw-file"`
	ChunkSize int               `json:"chunk-size"`
	SqliteDB  string            `json:"sqlite-db"`
	S3        *s3archive.Config `json:"s3"`
	Interp    m26interp.Config  `json:"interpreter"`
	LogLevel  string            `json:"log-level"`
}

var programConfig = ProgramConfig{
	ChunkSize: 1 << 16,
	Interp:    m26interp.DefaultConfig(),
	LogLevel:  "info",
}

func main() {
	var flagConfigFile, flagRawFile, flagSqliteDB string
	var flagUseS3 bool
	flag.StringVar(&flagConfigFile, "config", "", "Overwrite the default options by those specified in `config.json`")
	flag.StringVar(&flagRawFile, "raw-file", "", "Path to a little-endian raw acquisition word file")
	flag.StringVar(&flagSqliteDB, "sqlite-db", "", "Path to the SQLite database the hit table is written to")
	flag.BoolVar(&flagUseS3, "s3", false, "Read raw chunks from / archive hits to the S3 bucket in the config file's \"s3\" section")
	flag.Parse()

	if flagConfigFile != "" {
		f, err := os.Open(flagConfigFile)
		if err != nil {
			log.Fatal(err)
		}
		dec := json.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&programConfig); err != nil {
			f.Close()
			log.Fatal(err)
		}
		f.Close()
	}
	if flagRawFile != "" {
		programConfig.RawFile = flagRawFile
	}
	if flagSqliteDB != "" {
		programConfig.SqliteDB = flagSqliteDB
	}

	log.SetLevel(programConfig.LogLevel)

	ip, err := m26interp.NewInterpreter(programConfig.Interp, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("construct interpreter: %s", err.Error())
	}

	ctx := context.Background()
	reader, closeReader := openReader(ctx, flagUseS3)
	defer closeReader()

	writers := openWriters(ctx, flagUseS3)
	defer func() {
		for _, w := range writers {
			if c, ok := w.(interface{ Close() error }); ok {
				c.Close()
			}
		}
	}()

	runInterpreter(ctx, ip, reader, writers)
}

func openReader(ctx context.Context, useS3 bool) (m26interp.RawWordReader, func()) {
	if useS3 && programConfig.S3 != nil {
		r, err := s3archive.NewReader(ctx, *programConfig.S3)
		if err != nil {
			log.Fatalf("open S3 raw reader: %s", err.Error())
		}
		return r, func() {}
	}
	if programConfig.RawFile == "" {
		log.Fatal("one of -raw-file or -s3 (with a configured \"s3\" section) is required")
	}
	r, err := rawfile.Open(programConfig.RawFile, programConfig.ChunkSize)
	if err != nil {
		log.Fatalf("open raw file: %s", err.Error())
	}
	return r, func() { r.Close() }
}

func openWriters(ctx context.Context, useS3 bool) []m26interp.HitWriter {
	var writers []m26interp.HitWriter
	if programConfig.SqliteDB != "" {
		w, err := sqlitehits.NewWriter(programConfig.SqliteDB)
		if err != nil {
			log.Fatalf("open SQLite hit writer: %s", err.Error())
		}
		writers = append(writers, w)
	}
	if useS3 && programConfig.S3 != nil {
		w, err := s3archive.NewWriter(ctx, *programConfig.S3)
		if err != nil {
			log.Fatalf("open S3 hit writer: %s", err.Error())
		}
		writers = append(writers, w)
	}
	if len(writers) == 0 {
		log.Fatal("no hit writer configured: set -sqlite-db or enable -s3 with a configured archive bucket")
	}
	return writers
}

// runInterpreter drives InterpretRawData to completion. ReadChunk signals
// exhaustion only on the call *after* the final non-empty chunk (returning
// io.EOF with a nil chunk), so the final chunk itself carries no "this is
// the last one" marker; a one-chunk lookahead is needed to know when to
// pass buildAllEvents=true.
func runInterpreter(ctx context.Context, ip *m26interp.Interpreter, reader m26interp.RawWordReader, writers []m26interp.HitWriter) {
	var nHits, nChunks int

	pending, err := reader.ReadChunk(ctx)
	for err == nil {
		next, nextErr := reader.ReadChunk(ctx)
		last := nextErr != nil

		hits, _ := ip.InterpretRawData(pending, last)
		nChunks++
		nHits += len(hits)
		for _, w := range writers {
			if werr := w.WriteHits(ctx, hits); werr != nil {
				log.Fatalf("write hits: %s", werr.Error())
			}
		}

		pending, err = next, nextErr
	}
	log.Infof("interpreted %d chunks, wrote %d hits", nChunks, nHits)
}
