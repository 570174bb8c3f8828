// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Buffer manager: two append-only, geometrically-growing buffers (telescope
// hits and trigger records) with bounded retention and post-pass compaction.
package m26interp

// Time-base constants, units of 40 MHz ticks (25 ns).
const (
	// FrameUnitCycle is 115.2 microseconds, the time to read one full
	// Mimosa26 frame, expressed in 40 MHz ticks.
	FrameUnitCycle int64 = 4608
	// RowUnitCycle is the time to read one row.
	RowUnitCycle int64 = 8
	// NRows is the number of rows in a Mimosa26 frame.
	NRows = 576
	// NColumns is the number of columns in a Mimosa26 frame.
	NColumns = 1152

	ticksPerSecond           int64 = 40_000_000
	defaultMaxBufferTimeSlip int64 = 5 * ticksPerSecond
)

// buffers holds the telescope-hit and trigger-record arrays shared by the
// frame/trigger decoders and the event builder. Owned exclusively by
// Interpreter; never aliased to a caller (spec §3 Ownership).
type buffers struct {
	telescope []TelescopeHit
	trigger   []TriggerRecord

	maxBufferTimeSlip int64
	metrics           *metrics
}

func newBuffers(maxBufferTimeSlip int64, m *metrics) *buffers {
	return &buffers{maxBufferTimeSlip: maxBufferTimeSlip, metrics: m}
}

// appendHit appends h to the telescope buffer. If the buffer is about to
// grow its backing array, stale entries for h.Plane are purged first
// (spec §4.4: "whenever the telescope buffer is grown, the manager first
// purges plane-local entries... more than MAX_BUFFER_TIME_SLIP behind the
// plane's current timestamp").
func (b *buffers) appendHit(h TelescopeHit) {
	if len(b.telescope) == cap(b.telescope) {
		b.purgeStaleTelescope(h.Plane, h.M26Timestamp)
	}
	b.telescope = append(b.telescope, h)
}

// purgeStaleTelescope drops buffered hits of plane older than
// maxBufferTimeSlip behind currentTimestamp. Other planes' hits, and this
// plane's recent hits, keep their relative order.
func (b *buffers) purgeStaleTelescope(plane uint8, currentTimestamp int64) int {
	threshold := currentTimestamp - b.maxBufferTimeSlip
	write := 0
	removed := 0
	for _, h := range b.telescope {
		if h.Plane == plane && h.M26Timestamp < threshold {
			removed++
			continue
		}
		b.telescope[write] = h
		write++
	}
	b.telescope = b.telescope[:write]
	if removed > 0 && b.metrics != nil {
		b.metrics.bufferPurges.Add(float64(removed))
	}
	return removed
}

// appendTrigger appends t to the trigger buffer.
func (b *buffers) appendTrigger(t TriggerRecord) {
	b.trigger = append(b.trigger, t)
}

// compactTelescope drops every entry before index from, rebasing the
// buffer so index 0 is the oldest entry still referenced by an un-emitted
// event (spec §4.4: "everything before the earliest index still referenced
// by an un-emitted event is dropped").
func (b *buffers) compactTelescope(from int) {
	if from <= 0 {
		return
	}
	if from >= len(b.telescope) {
		b.telescope = b.telescope[:0]
		return
	}
	n := copy(b.telescope, b.telescope[from:])
	b.telescope = b.telescope[:n]
}

// compactTrigger drops every entry before index from, same discipline as
// compactTelescope.
func (b *buffers) compactTrigger(from int) {
	if from <= 0 {
		return
	}
	if from >= len(b.trigger) {
		b.trigger = b.trigger[:0]
		return
	}
	n := copy(b.trigger, b.trigger[from:])
	b.trigger = b.trigger[:n]
}

// BufferPressure reports the buffer manager's current occupancy, the
// optional "backpressure" signal spec §7c allows a caller to inspect when
// retention cannot reclaim enough capacity on its own.
type BufferPressure struct {
	TelescopeHits     int
	TriggerRecords    int
	TelescopeHitsCap  int
	TriggerRecordsCap int
}

func (b *buffers) pressure() BufferPressure {
	return BufferPressure{
		TelescopeHits:     len(b.telescope),
		TriggerRecords:    len(b.trigger),
		TelescopeHitsCap:  cap(b.telescope),
		TriggerRecordsCap: cap(b.trigger),
	}
}
