// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package m26interp interprets the binary raw-data stream produced by a
// six-plane Mimosa26 pixel telescope read out together with a Trigger
// Logic Unit (TLU), and builds a hit table in which every pixel hit is
// attributed to a trigger event.
//
// The entry point is Interpreter.InterpretRawData, called once per chunk
// of raw 32-bit words in acquisition order. It is the only suspension
// point: no goroutines are started internally and no I/O is performed.
// Everything the decoder cannot resolve to a hit is encoded as Status bits
// rather than returned as an error; see Status and HitRecord.
package m26interp

// HitRecord is one pixel hit attributed to a trigger event, the sole
// element of the hit table this package produces (spec §3/§6).
type HitRecord struct {
	Plane            uint8
	EventNumber      int64
	TriggerNumber    int64
	TriggerTimestamp int64
	RowTimestamp     int64
	FrameID          int64
	Column           uint16
	Row              uint16
	EventStatus      Status
}

// TelescopeHit is a single decoded pixel, buffered until an Event Builder
// pass can attribute it to a trigger (or it ages out of the retention
// window). Never exposed to callers directly except via the secondary
// telescopeHits return value of InterpretRawData, which exists for
// downstream occupancy/diagnostic collaborators (see SPEC_FULL.md,
// Supplemented Features).
type TelescopeHit struct {
	Plane        uint8
	M26Timestamp int64
	FrameID      int64
	Column       uint16
	Row          uint16
	FrameStatus  Status
}

// TriggerRecord is one TLU trigger, buffered until every active plane's
// readout window covering its timestamp is known.
type TriggerRecord struct {
	EventNumber      int64
	TriggerNumber    int64
	TriggerTimestamp int64
	TriggerStatus    Status
}

// planeState is the per-plane bookkeeping the frame decoder mutates word by
// word (spec §3 PlaneState, §4.2). One instance per active plane, held in a
// dense slice on Interpreter indexed by planeIndex, never a map — mirroring
// the teacher's dense per-child state arrays (pkg/metricstore/level.go).
type planeState struct {
	planeID uint8

	frameID              int64
	lastCompletedFrameID int64
	m26Timestamp         int64
	lastM26Timestamp     int64
	dataLoss             bool
	wordIndex            uint32
	frameLength          uint32
	nWordsRemaining      uint32
	row                  uint32
	frameStatus          Status

	// finishedIndex is the Event Builder's per-plane cursor into the
	// telescope buffer (spec §4.5): entries at or before it can never match
	// the current or any later trigger. -1 means nothing has been ruled
	// out yet.
	finishedIndex int64
}
