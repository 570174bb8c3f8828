// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Property-based tests using pgregory.net/rapid, enriching the teacher's
// test story (which has none) for testable properties that are naturally
// generative rather than example-based: chunk-size independence and
// timestamp overflow reconstruction.
package m26interp

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// buildStream assembles nFrames well-formed single-hit frames on plane 1,
// each timestamped far enough apart that their readout windows don't
// overlap, followed by one trigger landing inside the last frame's window.
func buildStream(nFrames int) []uint32 {
	var words []uint32
	// step > FRAME_UNIT_CYCLE + ROW_UNIT_CYCLE keeps windows disjoint, and
	// 4*step < 2^15 keeps every timestamp inside frame()'s 16-bit tsLow and
	// every trigger in the same 15-bit block as the previous frame's timestamp.
	const step = 10000
	var lastTS uint32
	for i := 0; i < nFrames; i++ {
		ts := uint32(i+1) * step
		lastTS = ts
		words = append(words, frame(1, ts, 0, uint32(i+1), 0, 0, uint32(i%1000))...)
	}
	// land inside the last frame's window: row_ts_start = lastTS - 2*4608 + 112
	triggerTS := int64(lastTS) - 2*FrameUnitCycle + 112 + 100
	words = append(words, triggerWord(triggerTS, int64(nFrames-1)))
	return words
}

// TestChunkSizeIndependence checks that splitting an otherwise identical
// raw-word stream into differently sized chunks (with buildAllEvents only
// on the final chunk) produces the same hit table as interpreting it in
// one call, for a randomly drawn chunk size (spec §8).
func TestChunkSizeIndependence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		nFrames := rapid.IntRange(1, 4).Draw(rt, "nFrames")
		words := buildStream(nFrames)

		cfgPlanes := []uint8{1}

		oneShot := DefaultConfig()
		oneShot.ActivePlanes = cfgPlanes
		ipWhole, err := NewInterpreter(oneShot, prometheus.NewRegistry())
		require.NoError(t, err)
		wantHits, _ := ipWhole.InterpretRawData(words, true)

		chunkSize := rapid.IntRange(1, len(words)).Draw(rt, "chunkSize")
		chunked := DefaultConfig()
		chunked.ActivePlanes = cfgPlanes
		ipChunked, err := NewInterpreter(chunked, prometheus.NewRegistry())
		require.NoError(t, err)

		var gotHits []HitRecord
		for start := 0; start < len(words); start += chunkSize {
			end := start + chunkSize
			if end > len(words) {
				end = len(words)
			}
			last := end == len(words)
			hits, _ := ipChunked.InterpretRawData(words[start:end], last)
			gotHits = append(gotHits, hits...)
		}

		require.Equal(rt, wantHits, gotHits)
	})
}

// TestExtendTimestampHighContract checks extendTimestampHigh's documented
// contract directly: given the plane's current reconstructed low-32 window
// and a freshly header-merged low16, the high word either completes a
// higher or equal 32-bit value (no wrap) or a strictly lower one, in which
// case the result must wrap by exactly 2^32 and flag TimestampOverflow
// (spec §8 overflow reconstruction).
func TestExtendTimestampHighContract(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		priorLow32 := rapid.Uint32().Draw(rt, "priorLow32")
		newLow16 := rapid.Uint32Range(0, 0xFFFF).Draw(rt, "newLow16")
		newHigh16 := rapid.Uint32Range(0, 0xFFFF).Draw(rt, "newHigh16")
		newLow32 := (newHigh16 << 16) | newLow16

		p := &planeState{planeID: 1, lastCompletedFrameID: -1, finishedIndex: -1}
		p.m26Timestamp = int64(priorLow32)
		p.m26Timestamp = (p.m26Timestamp &^ 0xFFFF) | int64(newLow16)
		// after the header merge, this is the window extendTimestampHigh
		// actually compares newLow32 against.
		mergedOldLow32 := (priorLow32 &^ 0xFFFF) | newLow16

		extendTimestampHigh(p, newHigh16)

		if newLow32 < mergedOldLow32 {
			require.Equal(rt, int64(newLow32)+(1<<32), p.m26Timestamp)
			require.True(rt, p.frameStatus.Has(TimestampOverflow))
		} else {
			require.Equal(rt, int64(newLow32), p.m26Timestamp)
			require.False(rt, p.frameStatus.Has(TimestampOverflow))
		}
	})
}

// TestExtendFrameIDHighContract mirrors TestExtendTimestampHighContract for
// the frame counter's identically shaped reconstruction.
func TestExtendFrameIDHighContract(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		priorLow32 := rapid.Uint32().Draw(rt, "priorLow32")
		newLow16 := rapid.Uint32Range(0, 0xFFFF).Draw(rt, "newLow16")
		newHigh16 := rapid.Uint32Range(0, 0xFFFF).Draw(rt, "newHigh16")
		newLow32 := (newHigh16 << 16) | newLow16

		p := &planeState{planeID: 1, lastCompletedFrameID: -1, finishedIndex: -1}
		p.frameID = int64(priorLow32)
		p.frameID = (p.frameID &^ 0xFFFF) | int64(newLow16)
		mergedOldLow32 := (priorLow32 &^ 0xFFFF) | newLow16

		extendFrameIDHigh(p, newHigh16)

		if newLow32 < mergedOldLow32 {
			require.Equal(rt, int64(newLow32)+(1<<32), p.frameID)
			require.True(rt, p.frameStatus.Has(FrameIDOverflow))
		} else {
			require.Equal(rt, int64(newLow32), p.frameID)
			require.False(rt, p.frameStatus.Has(FrameIDOverflow))
		}
	})
}
