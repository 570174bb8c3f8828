// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Per-Plane Frame Decoder (spec §4.2), translated word-for-word from
// original_source/pymosa_mimosa26_interpreter/raw_data_interpreter.py's
// _interpret_raw_data M26 branch. Kept as free functions over *planeState
// and *buffers, in the teacher's style of small decode-one-record
// functions (pkg/nats/influxDecoder.go), rather than methods on
// Interpreter.
package m26interp

// maxFrameLength is the largest frame-length value the detector can report;
// anything larger is frame corruption.
const maxFrameLength = 570

// decodeM26Word advances plane p's state machine by one Mimosa26 word,
// appending any completed pixel hits to buf.
func decodeM26Word(p *planeState, word uint32, buf *buffers, m *metrics) {
	if isFrameHeader(word) {
		onFrameHeader(p, word, buf)
		if m != nil {
			m.framesStarted.WithLabelValues(planeLabel(p.planeID)).Inc()
		}
		return
	}

	if isDataLoss(word) {
		p.dataLoss = true
	}
	if p.dataLoss {
		return // trash data until the next frame header
	}

	p.wordIndex++
	payloadEnd := 5 + p.frameLength
	trailer0Index := payloadEnd + 1
	trailer1Index := payloadEnd + 2

	switch {
	case p.wordIndex == 1:
		extendTimestampHigh(p, word)
	case p.wordIndex == 2:
		p.frameID = (p.frameID &^ 0xFFFF) | frameIDLow(word)
	case p.wordIndex == 3:
		extendFrameIDHigh(p, word)
	case p.wordIndex == 4:
		p.frameLength = frameLength(word)
		if p.frameLength > maxFrameLength {
			p.poison(m)
		}
	case p.wordIndex == 5:
		if frameLength(word) != p.frameLength {
			p.poison(m)
		}
	case p.wordIndex == trailer0Index:
		if !isFrameTrailer0(word) {
			p.poison(m)
		}
	case p.wordIndex == trailer1Index:
		if !isFrameTrailer1(word, p.planeID) {
			p.poison(m)
		} else {
			p.lastCompletedFrameID = p.frameID
		}
	case p.wordIndex > trailer1Index:
		p.poison(m) // overlong payload
	default:
		decodePayloadWord(p, word, payloadEnd, buf, m)
	}
}

// extendTimestampHigh merges the high 16 bits of the 32-bit m26 timestamp
// (the low 16 bits were already merged in at the frame header) and
// reconstructs the 63-bit accumulator, flagging TimestampOverflow on wrap.
func extendTimestampHigh(p *planeState, word uint32) {
	newLow32 := uint32(p.m26Timestamp&0xFFFF) | uint32(timestampHigh(word))
	oldLow32 := uint32(p.m26Timestamp & 0xFFFFFFFF)
	base := p.m26Timestamp &^ 0xFFFFFFFF
	if newLow32 < oldLow32 {
		p.m26Timestamp = base + int64(newLow32) + (1 << 32)
		p.frameStatus |= TimestampOverflow
		return
	}
	p.m26Timestamp = base + int64(newLow32)
}

// extendFrameIDHigh is extendTimestampHigh's counterpart for the 32-bit
// frame counter, flagging FrameIDOverflow on wrap.
func extendFrameIDHigh(p *planeState, word uint32) {
	newLow32 := uint32(p.frameID&0xFFFF) | uint32(frameIDHigh(word))
	oldLow32 := uint32(p.frameID & 0xFFFFFFFF)
	base := p.frameID &^ 0xFFFFFFFF
	if newLow32 < oldLow32 {
		p.frameID = base + int64(newLow32) + (1 << 32)
		p.frameStatus |= FrameIDOverflow
		return
	}
	p.frameID = base + int64(newLow32)
}

// decodePayloadWord handles one word inside the frame's row/column payload:
// either a row-status word (nWordsRemaining == 0) or a hit-encoding word.
func decodePayloadWord(p *planeState, word uint32, payloadEnd uint32, buf *buffers, m *metrics) {
	if p.nWordsRemaining == 0 {
		if p.wordIndex == payloadEnd {
			return // odd trailing filler word, no room for a hit word after it
		}
		p.nWordsRemaining = rowNWords(word)
		row := rowOf(word)
		if row >= NRows {
			p.poison(m)
			return
		}
		p.row = row
		if hasRowOverflow(word) {
			p.frameStatus |= OverflowFlag
		}
		return
	}

	p.nWordsRemaining--
	nHits := columnNHits(word)
	column := columnOf(word)
	if column >= NColumns {
		p.poison(m)
		return
	}
	for k := uint32(0); k <= nHits; k++ {
		if column+k >= NColumns {
			p.poison(m)
			return
		}
		buf.appendHit(TelescopeHit{
			Plane:        p.planeID,
			M26Timestamp: p.m26Timestamp,
			FrameID:      p.frameID,
			Column:       uint16(column + k),
			Row:          uint16(p.row),
			FrameStatus:  p.frameStatus,
		})
		if m != nil {
			m.hitsDecoded.WithLabelValues(planeLabel(p.planeID)).Inc()
		}
	}
}

// onFrameHeader starts a new frame on plane p. Any buffered hits from the
// frame being abandoned (one that never reached its trailer) are
// retroactively flagged DataError, since last_completed_m26_frame_ids was
// never advanced past it.
func onFrameHeader(p *planeState, word uint32, buf *buffers) {
	markFrameTruncationError(buf, p.planeID, p.lastCompletedFrameID)

	p.lastM26Timestamp = p.m26Timestamp
	p.m26Timestamp = (p.m26Timestamp &^ 0xFFFF) | timestampLow(word)
	p.wordIndex = 0
	p.frameLength = 0
	p.nWordsRemaining = 0
	p.dataLoss = false
	p.frameStatus = 0
}

// poison trashes the remainder of the current frame: no further hits are
// emitted for it until the next frame header. The frame's already-buffered
// hits are flagged DataError later, by the retroactive walk in
// onFrameHeader (or, at the end of a build-all-events pass, by
// markFrameTruncationError called directly for every plane).
func (p *planeState) poison(m *metrics) {
	p.dataLoss = true
	if m != nil {
		m.framesPoisoned.WithLabelValues(planeLabel(p.planeID)).Inc()
	}
}

// markFrameTruncationError flags DataError on every buffered hit of plane
// still attributed to a frame more recent than lastCompletedFrameID,
// walking backward from the newest entry until it reaches one that is not
// (spec §4.2, §9 Open Question a: applies only to hits still buffered, not
// ones already emitted into a sealed event).
func markFrameTruncationError(buf *buffers, plane uint8, lastCompletedFrameID int64) {
	for i := len(buf.telescope) - 1; i >= 0; i-- {
		h := &buf.telescope[i]
		if h.Plane != plane {
			continue
		}
		if h.FrameID > lastCompletedFrameID {
			h.FrameStatus |= DataError
			continue
		}
		break
	}
}
