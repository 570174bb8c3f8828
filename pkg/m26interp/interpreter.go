// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package m26interp

import "github.com/prometheus/client_golang/prometheus"

// Interpreter holds all per-telescope decoding state: one planeState per
// active plane, the shared telescope/trigger buffers, and the trigger
// accumulator. It is not safe for concurrent use; spec §5 requires callers
// to serialize their own calls to InterpretRawData.
type Interpreter struct {
	cfg Config

	planes     []planeState
	planeIndex [16]int8 // raw header ID -> index into planes, -1 if inactive

	buf     *buffers
	metrics *metrics

	triggerTimestamp int64
	triggerNumber    int64
	eventNumber      int64
}

// NewInterpreter constructs an Interpreter for cfg, registering its
// Prometheus counters against reg. Pass prometheus.NewRegistry() for an
// isolated registry, or nil to use prometheus.DefaultRegisterer.
//
// Besides LoadConfig, NewInterpreter is the only place this package returns
// an error: every runtime anomaly afterward is folded into Status bits
// instead (spec §7).
func NewInterpreter(cfg Config, reg prometheus.Registerer) (*Interpreter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ip := &Interpreter{
		cfg:              cfg,
		triggerTimestamp: 0,
		triggerNumber:    -1,
		eventNumber:      -1,
	}
	for i := range ip.planeIndex {
		ip.planeIndex[i] = -1
	}

	ip.planes = make([]planeState, len(cfg.ActivePlanes))
	for i, id := range cfg.ActivePlanes {
		ip.planes[i] = planeState{
			planeID:              id,
			lastCompletedFrameID: -1,
			dataLoss:             true, // trash data until the first frame header
			finishedIndex:        -1,
		}
		ip.planeIndex[id] = int8(i)
	}

	ip.metrics = newMetrics(reg)
	ip.buf = newBuffers(defaultMaxBufferTimeSlip, ip.metrics)
	return ip, nil
}

func (ip *Interpreter) planeIndexOf(planeID uint8) int {
	if int(planeID) >= len(ip.planeIndex) {
		return -1
	}
	return int(ip.planeIndex[planeID])
}

// InterpretRawData consumes one chunk of raw 32-bit words in acquisition
// order, decoding Mimosa26 frames and TLU triggers and attributing
// completed pixel hits to trigger events (spec §2, §4.5).
//
// When buildAllEvents is true, every buffered trigger is sealed and both
// internal buffers are fully flushed regardless of whether the stream
// ended mid-frame; pass true only on the final chunk of a run.
//
// The first return value is the hit table: every pixel hit attributed to
// a sealed event during this call. The second is a snapshot of the
// telescope hits currently buffered (spec §9, Supplemented Features),
// intended for downstream occupancy/diagnostic collaborators; most
// callers can discard it.
func (ip *Interpreter) InterpretRawData(words []uint32, buildAllEvents bool) ([]HitRecord, []TelescopeHit) {
	for _, word := range words {
		cw := classify(word)
		switch cw.kind {
		case wordM26:
			if ip.metrics != nil {
				ip.metrics.wordsClassified.WithLabelValues("m26").Inc()
			}
			pi := ip.planeIndexOf(cw.planeID)
			if pi < 0 {
				continue // header ID not in active_planes, silently dropped
			}
			decodeM26Word(&ip.planes[pi], word, ip.buf, ip.metrics)
		case wordTrigger:
			if ip.metrics != nil {
				ip.metrics.wordsClassified.WithLabelValues("trigger").Inc()
			}
			decodeTriggerWord(ip, word)
		default:
			if ip.metrics != nil {
				ip.metrics.wordsClassified.WithLabelValues("unknown").Inc()
				ip.metrics.unknownWords.Inc()
			}
			for i := range ip.planes {
				ip.planes[i].dataLoss = true
			}
		}
	}

	if buildAllEvents {
		for i := range ip.planes {
			markFrameTruncationError(ip.buf, ip.planes[i].planeID, ip.planes[i].lastCompletedFrameID)
		}
	}

	hits := buildEvents(ip, buildAllEvents)

	telescopeHits := make([]TelescopeHit, len(ip.buf.telescope))
	copy(telescopeHits, ip.buf.telescope)
	return hits, telescopeHits
}

// BufferPressure reports the current occupancy of the internal telescope
// and trigger buffers (spec §7c, §9 Supplemented Features): an optional
// signal a caller can poll to decide whether to force a buildAllEvents
// flush before retention alone would reclaim enough capacity.
func (ip *Interpreter) BufferPressure() BufferPressure {
	return ip.buf.pressure()
}
