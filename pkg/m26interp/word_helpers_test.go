// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package m26interp

// Raw-word builders used across this package's tests, mirroring spec
// §4.1/§4.2/§4.3's bit layouts so scenario tests can assemble realistic
// Mimosa26/trigger streams without hand-computing masks inline.

func m26DataWord(plane uint8, low16 uint32) uint32 {
	return m26WordPattern | (uint32(plane) << planeIDShift) | (low16 & 0xFFFF)
}

func m26HeaderWord(plane uint8, tsLow uint32) uint32 {
	return m26DataWord(plane, tsLow) | frameHeaderBit
}

func m26DataLossWord(plane uint8) uint32 {
	return m26DataWord(plane, 0) | dataLossBit
}

func rowStatusWord(plane uint8, nWords uint32, row uint32, overflow bool) uint32 {
	v := (nWords & rowNWordsMask) | ((row << rowShift) & rowMask)
	if overflow {
		v |= rowOverflowBit
	}
	return m26DataWord(plane, v)
}

func hitWord(plane uint8, nHits uint32, column uint32) uint32 {
	v := (nHits & columnNHitsMask) | ((column << columnShift) & columnMask)
	return m26DataWord(plane, v)
}

func trailer0Word(plane uint8) uint32 {
	return m26DataWord(plane, frameTrailer0Value)
}

func trailer1Word(plane uint8) uint32 {
	return m26DataWord(plane, frameTrailer0Value|uint32(plane))
}

func triggerWord(ts int64, number int64) uint32 {
	return triggerBit | (uint32(ts)<<triggerTimestampShift)&triggerTimestampMask | (uint32(number) & triggerNumberFormat2Mask)
}

// frame builds one complete, well-formed single-hit Mimosa26 frame for
// plane, with m26 timestamp (tsHigh<<16)|tsLow, frame ID
// (frameIDHigh<<16)|frameIDLow, and a single pixel hit at (row, column).
func frame(plane uint8, tsLow, tsHigh, frameIDLow, frameIDHigh, row, column uint32) []uint32 {
	const payloadLen = 2 // one row-status word, one hit word
	return []uint32{
		m26HeaderWord(plane, tsLow),
		m26DataWord(plane, tsHigh),
		m26DataWord(plane, frameIDLow),
		m26DataWord(plane, frameIDHigh),
		m26DataWord(plane, payloadLen),
		m26DataWord(plane, payloadLen),
		rowStatusWord(plane, 1, row, false),
		hitWord(plane, 0, column),
		trailer0Word(plane),
		trailer1Word(plane),
	}
}
