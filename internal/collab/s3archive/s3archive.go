// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package s3archive archives hit batches as CSV objects in an
// S3-compatible bucket. Grounded near line-for-line on the teacher's
// pkg/archive/parquet/target.go S3Target (aws-sdk-go-v2 config +
// credentials + s3 client construction, PutObject per write).
package s3archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/silab-bonn/m26interp/pkg/m26interp"
)

// Config holds the configuration for an S3-backed hit archive.
type Config struct {
	Endpoint     string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Region       string
	UsePathStyle bool
	KeyPrefix    string
}

// Writer implements m26interp.HitWriter, archiving each batch of hits as
// one CSV object.
type Writer struct {
	client *s3.Client
	bucket string
	prefix string
	seq    int
}

// NewWriter constructs a Writer against cfg.
func NewWriter(ctx context.Context, cfg Config) (*Writer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("[S3ARCHIVE]> empty bucket name")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("[S3ARCHIVE]> load AWS config: %w", err)
	}

	opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	client := s3.NewFromConfig(awsCfg, opts)
	return &Writer{client: client, bucket: cfg.Bucket, prefix: cfg.KeyPrefix}, nil
}

var csvHeader = []string{
	"plane", "event_number", "trigger_number", "trigger_timestamp",
	"row_timestamp", "frame_id", "column", "row", "event_status",
}

func encodeHitsCSV(hits []m26interp.HitRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, h := range hits {
		record := []string{
			strconv.Itoa(int(h.Plane)),
			strconv.FormatInt(h.EventNumber, 10),
			strconv.FormatInt(h.TriggerNumber, 10),
			strconv.FormatInt(h.TriggerTimestamp, 10),
			strconv.FormatInt(h.RowTimestamp, 10),
			strconv.FormatInt(h.FrameID, 10),
			strconv.Itoa(int(h.Column)),
			strconv.Itoa(int(h.Row)),
			strconv.FormatUint(uint64(h.EventStatus), 10),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHits archives hits as a single CSV object keyed by a monotonically
// increasing sequence number under cfg.KeyPrefix.
func (w *Writer) WriteHits(ctx context.Context, hits []m26interp.HitRecord) error {
	if len(hits) == 0 {
		return nil
	}
	data, err := encodeHitsCSV(hits)
	if err != nil {
		return fmt.Errorf("[S3ARCHIVE]> encode hits: %w", err)
	}

	w.seq++
	key := fmt.Sprintf("%shits-%06d.csv", w.prefix, w.seq)
	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("[S3ARCHIVE]> put object %q: %w", key, err)
	}
	return nil
}

// Reader implements m26interp.RawWordReader against a bucket of raw
// acquisition chunks, each a little-endian uint32 object (the inverse of
// rawfile.Reader, for runs recorded straight to object storage rather than
// a local file). Every object under cfg.KeyPrefix becomes one ReadChunk
// call's worth of words, in lexical key order.
type Reader struct {
	client *s3.Client
	bucket string
	keys   []string
	idx    int
}

// NewReader lists every object under cfg.KeyPrefix once at construction
// time and prepares to stream them back in order.
func NewReader(ctx context.Context, cfg Config) (*Reader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("[S3ARCHIVE]> empty bucket name")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("[S3ARCHIVE]> load AWS config: %w", err)
	}

	opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}
	client := s3.NewFromConfig(awsCfg, opts)

	r := &Reader{client: client, bucket: cfg.Bucket}
	var continuationToken *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(cfg.Bucket),
			Prefix:            aws.String(cfg.KeyPrefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("[S3ARCHIVE]> list objects under %q: %w", cfg.KeyPrefix, err)
		}
		for _, obj := range out.Contents {
			r.keys = append(r.keys, aws.ToString(obj.Key))
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	sort.Strings(r.keys)
	return r, nil
}

// ReadChunk fetches the next not-yet-read object and decodes its body as a
// sequence of little-endian uint32 words, in the acquisition order the
// objects were named (spec §5: raw data order must match physical
// acquisition order, which the caller guarantees by key naming).
func (r *Reader) ReadChunk(ctx context.Context) ([]uint32, error) {
	if r.idx >= len(r.keys) {
		return nil, io.EOF
	}
	key := r.keys[r.idx]
	r.idx++

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("[S3ARCHIVE]> get object %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("[S3ARCHIVE]> read object %q: %w", key, err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("[S3ARCHIVE]> object %q length %d is not a multiple of 4", key, len(data))
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	return words, nil
}
