// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Collaborator interfaces spec §6 leaves to the caller: reading raw words
// off whatever storage a run was recorded to, and writing the resulting
// hit table wherever it is consumed downstream. Grounded on the teacher's
// dependency-breaking interfaces (pkg/metricstore/metricstore.go's
// NodeProvider, pkg/archive/parquet/target.go's ParquetTarget): this
// package depends only on the interface, and internal/collab holds the
// concrete, dependency-heavy implementations.
package m26interp

import "context"

// RawWordReader supplies chunks of raw 32-bit acquisition words in order.
// ReadChunk returns io.EOF (wrapped or not) once the run is exhausted;
// callers should pass buildAllEvents=true to the InterpretRawData call
// that consumes the final chunk.
type RawWordReader interface {
	ReadChunk(ctx context.Context) ([]uint32, error)
}

// HitWriter persists a batch of completed hits. Implementations must treat
// WriteHits as an append: InterpretRawData never re-emits a hit once
// returned.
type HitWriter interface {
	WriteHits(ctx context.Context, hits []HitRecord) error
}
