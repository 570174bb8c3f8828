// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Event Builder (spec §4.5), translated from
// original_source/pymosa_mimosa26_interpreter/raw_data_interpreter.py's
// _build_events: for every buffered trigger, walk the telescope buffer
// with one cursor per plane until every plane has either matched the
// trigger's readout window or proven its remaining hits belong to a later
// one, then seal the event and compact both buffers.
package m26interp

// buildEvents matches buffered triggers against buffered telescope hits
// and returns every hit assignable to a fully-sealed event. When
// buildAllEvents is true, every buffered trigger is sealed regardless of
// whether every plane naturally finished, and both buffers are flushed
// completely; this is the chunk-boundary/EOF flush described in spec §4.5
// and §8.
func buildEvents(ip *Interpreter, buildAllEvents bool) []HitRecord {
	var hits []HitRecord

	lastSealedTriggerIdx := -1
	lastEventFinishedIndices := make([]int64, len(ip.planes))
	for i := range lastEventFinishedIndices {
		lastEventFinishedIndices[i] = -1
	}

	triggerIdx := 0
	for triggerIdx < len(ip.buf.trigger) {
		trig := ip.buf.trigger[triggerIdx]
		finishedEvent := make([]bool, len(ip.planes))
		eventStatus := make([]Status, len(ip.planes))
		eventHitStart := len(hits)
		sealed := false

		startIdx := ip.planes[0].finishedIndex
		for i := 1; i < len(ip.planes); i++ {
			if ip.planes[i].finishedIndex < startIdx {
				startIdx = ip.planes[i].finishedIndex
			}
		}

	inner:
		for j := startIdx + 1; j < int64(len(ip.buf.telescope)); j++ {
			th := ip.buf.telescope[j]
			pi := ip.planeIndexOf(th.Plane)
			if pi < 0 || finishedEvent[pi] {
				continue
			}
			plane := &ip.planes[pi]
			if !buildAllEvents && th.FrameID > plane.lastCompletedFrameID {
				continue // frame not yet complete; reconsider on a future call
			}

			hitStart := th.M26Timestamp + int64(th.Row)*RowUnitCycle - 2*FrameUnitCycle - ip.cfg.TimingOffset
			hitStop := hitStart + FrameUnitCycle + RowUnitCycle

			switch {
			case hitStart <= trig.TriggerTimestamp && trig.TriggerTimestamp < hitStop:
				hits = append(hits, HitRecord{
					Plane:            th.Plane,
					EventNumber:      trig.EventNumber,
					TriggerNumber:    trig.TriggerNumber,
					TriggerTimestamp: trig.TriggerTimestamp,
					RowTimestamp:     hitStart,
					FrameID:          th.FrameID,
					Column:           th.Column,
					Row:              th.Row,
				})
				eventStatus[pi] |= th.FrameStatus | trig.TriggerStatus
			case hitStart > trig.TriggerTimestamp:
				finishedEvent[pi] = true
				if allTrue(finishedEvent) {
					sealed = true
					break inner
				}
			default: // trig.TriggerTimestamp >= hitStop: can never match this or a later trigger
				plane.finishedIndex = j
			}
		}

		if !sealed {
			if !buildAllEvents {
				break // not every plane finished; wait for more data
			}
			sealed = true
		}

		for k := eventHitStart; k < len(hits); k++ {
			hits[k].EventStatus = eventStatus[ip.planeIndexOf(hits[k].Plane)]
		}
		lastSealedTriggerIdx = triggerIdx
		for i := range ip.planes {
			lastEventFinishedIndices[i] = ip.planes[i].finishedIndex
		}
		triggerIdx++

		if ip.metrics != nil {
			ip.metrics.eventsSealed.Inc()
		}
	}

	telescopeStart, triggerStart := 0, 0
	if buildAllEvents {
		telescopeStart = len(ip.buf.telescope)
		triggerStart = len(ip.buf.trigger)
	} else if lastSealedTriggerIdx >= 0 {
		minIdx := lastEventFinishedIndices[0]
		for _, v := range lastEventFinishedIndices[1:] {
			if v < minIdx {
				minIdx = v
			}
		}
		telescopeStart = int(minIdx) + 1
		triggerStart = lastSealedTriggerIdx + 1
	}

	ip.buf.compactTelescope(telescopeStart)
	ip.buf.compactTrigger(triggerStart)
	for i := range ip.planes {
		ip.planes[i].finishedIndex -= int64(telescopeStart)
		if ip.planes[i].finishedIndex < -1 {
			ip.planes[i].finishedIndex = -1
		}
	}

	return hits
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return true
}
