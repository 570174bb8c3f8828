// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package m26interp

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestInterpreter(t *testing.T, planes ...uint8) *Interpreter {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ActivePlanes = planes
	ip, err := NewInterpreter(cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	return ip
}

// Scenario: a clean frame followed by a trigger whose timestamp falls
// inside the single hit's readout window (spec §8).
func TestInterpretRawData_CleanFrameAndTrigger(t *testing.T) {
	ip := newTestInterpreter(t, 1)

	words := frame(1, 10000, 0, 1, 0, 0, 0)
	words = append(words, triggerWord(1000, 0))

	hits, _ := ip.InterpretRawData(words, true)
	require.Len(t, hits, 1)

	h := hits[0]
	require.Equal(t, uint8(1), h.Plane)
	require.Equal(t, int64(0), h.EventNumber)
	require.Equal(t, int64(0), h.TriggerNumber)
	require.Equal(t, int64(1000), h.TriggerTimestamp)
	require.Equal(t, int64(896), h.RowTimestamp) // 10000 + 0*8 - 2*4608 - (-112)
	require.Equal(t, Status(0), h.EventStatus)
}

// Scenario: a trigger whose timestamp falls outside every buffered hit's
// window produces no hit for that event, once flushed.
func TestInterpretRawData_TriggerOutsideWindow(t *testing.T) {
	ip := newTestInterpreter(t, 1)

	words := frame(1, 10000, 0, 1, 0, 0, 0)
	words = append(words, triggerWord(20000, 0))

	hits, _ := ip.InterpretRawData(words, true)
	require.Empty(t, hits)
}

// Scenario: a mid-frame data-loss word trashes the rest of that frame; the
// next header retroactively flags the truncated frame's buffered hits
// DataError, and no hit for that frame clears the trailer it never reached
// until flushed.
func TestInterpretRawData_DataLossMidFrame(t *testing.T) {
	ip := newTestInterpreter(t, 1)

	// Frame 0: header, ts/frameID words, length, one row-status + hit word,
	// then a data-loss word where the trailer words would be.
	// tsLow/row are chosen so the hit's readout window still covers the
	// trigger below, despite the frame never reaching its trailer.
	words := []uint32{
		m26HeaderWord(1, 9000),
		m26DataWord(1, 0),
		m26DataWord(1, 0), // frame ID low = 0
		m26DataWord(1, 0), // frame ID high = 0
		m26DataWord(1, 2),
		m26DataWord(1, 2),
		rowStatusWord(1, 1, 0, false),
		hitWord(1, 0, 20),
		m26DataLossWord(1),
	}
	// Frame 1 starts cleanly; its header triggers the retroactive sweep.
	words = append(words, frame(1, 9100, 0, 1, 0, 0, 40)...)
	words = append(words, triggerWord(1000, 0))

	hits, _ := ip.InterpretRawData(words, true)
	require.Len(t, hits, 2)

	for _, h := range hits {
		if h.FrameID == 0 {
			require.True(t, h.EventStatus.Has(DataError), "truncated frame 0's hit must carry DataError")
		}
	}
}

// Scenario: the very first observed trigger is never gap-checked against
// the previous trigger number, since there is no previous one (spec §4.3;
// the original guards this the same way). A first trigger number other
// than 0 must not synthesize placeholder events or flag TriggerNumberError.
func TestDecodeTriggerWord_FirstTriggerNeverGapChecked(t *testing.T) {
	ip := newTestInterpreter(t, 1)
	decodeTriggerWord(ip, triggerWord(1000, 10))

	require.Len(t, ip.buf.trigger, 1)
	require.Equal(t, int64(10), ip.buf.trigger[0].TriggerNumber)
	require.Equal(t, Status(0), ip.buf.trigger[0].TriggerStatus)
}

// Scenario: a trigger number gap of 3 with AddMissingEvents=true synthesizes
// exactly the missing three placeholder events, each flagged
// NoTriggerWordError, without disturbing the first trigger (spec §8
// scenario 3: incoming triggers 10, 14 yield event numbers for 10..14).
func TestDecodeTriggerWord_GapSynthesizesMissingEvents(t *testing.T) {
	ip := newTestInterpreter(t, 1)
	ip.cfg.AddMissingEvents = true

	decodeTriggerWord(ip, triggerWord(1000, 10))
	decodeTriggerWord(ip, triggerWord(2000, 14))

	require.Len(t, ip.buf.trigger, 5)
	wantNumbers := []int64{10, 11, 12, 13, 14}
	for i, tr := range ip.buf.trigger {
		require.Equal(t, wantNumbers[i], tr.TriggerNumber, "trigger %d", i)
	}
	require.Equal(t, Status(0), ip.buf.trigger[0].TriggerStatus)
	for _, tr := range ip.buf.trigger[1:4] {
		require.True(t, tr.TriggerStatus.Has(NoTriggerWordError))
	}
	require.Equal(t, Status(0), ip.buf.trigger[4].TriggerStatus)
}

// Scenario: the row-status overflow bit is sticky for the rest of the
// frame, carried onto every later hit too, not just the overflowing row's
// own (spec §8 scenario 5; the original only ever ORs the bit in and never
// clears it mid-frame).
func TestInterpretRawData_RowOverflowFlag(t *testing.T) {
	ip := newTestInterpreter(t, 1)

	words := []uint32{
		m26HeaderWord(1, 10000),
		m26DataWord(1, 0),
		m26DataWord(1, 0),
		m26DataWord(1, 0),
		m26DataWord(1, 4),
		m26DataWord(1, 4),
		rowStatusWord(1, 1, 0, true), // row 0, overflow bit set
		hitWord(1, 0, 0),
		rowStatusWord(1, 1, 1, false), // row 1, no overflow bit
		hitWord(1, 0, 1),
		trailer0Word(1),
		trailer1Word(1),
	}
	words = append(words, triggerWord(1000, 0))

	hits, _ := ip.InterpretRawData(words, true)
	require.Len(t, hits, 2)
	for _, h := range hits {
		require.True(t, h.EventStatus.Has(OverflowFlag), "row %d hit must keep the sticky OverflowFlag", h.Row)
	}
}

// Scenario: a truncated frame at the end of a chunk, flushed with
// buildAllEvents, is flagged DataError rather than silently dropped.
func TestInterpretRawData_TruncatedFrameFlush(t *testing.T) {
	ip := newTestInterpreter(t, 1)

	words := []uint32{
		m26HeaderWord(1, 10000),
		m26DataWord(1, 0),
		m26DataWord(1, 0),
		m26DataWord(1, 0),
		m26DataWord(1, 2),
		m26DataWord(1, 2),
		rowStatusWord(1, 1, 0, false),
		hitWord(1, 0, 0),
		// stream ends here: no trailer words at all
	}
	words = append(words, triggerWord(1000, 0))

	hits, _ := ip.InterpretRawData(words, true)
	require.Len(t, hits, 1)
	require.True(t, hits[0].EventStatus.Has(DataError))
}

func TestBufferPressureReflectsOccupancy(t *testing.T) {
	ip := newTestInterpreter(t, 1)
	before := ip.BufferPressure()
	require.Zero(t, before.TelescopeHits)

	words := frame(1, 10000, 0, 1, 0, 0, 0)
	ip.InterpretRawData(words, false)

	after := ip.BufferPressure()
	require.Equal(t, 1, after.TelescopeHits)
}
