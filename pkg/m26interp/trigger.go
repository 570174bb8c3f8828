// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Trigger Decoder (spec §4.3), translated from
// original_source/pymosa_mimosa26_interpreter/raw_data_interpreter.py's
// trigger branch of _interpret_raw_data.
package m26interp

// decodeTriggerWord reconstructs the 63-bit trigger timestamp and trigger
// number from one trigger word, synthesizes placeholder events for gaps in
// the trigger number when configured to, and appends the resulting
// TriggerRecord(s) to ip.buf.
func decodeTriggerWord(ip *Interpreter, word uint32) {
	var status Status

	oldTriggerTimestamp := ip.triggerTimestamp
	oldTriggerNumber := ip.triggerNumber

	// The trigger word only carries a 15-bit timestamp fragment; anchor it
	// against the larger of its own last reconstructed value and each
	// plane's lastM26Timestamp (the timestamp that plane held just before
	// its latest frame header, i.e. the previous frame's), before folding in
	// the new fragment. The in-progress frame's timestamp is not used.
	baseline := ip.triggerTimestamp
	for i := range ip.planes {
		if ip.planes[i].lastM26Timestamp > baseline {
			baseline = ip.planes[i].lastM26Timestamp
		}
	}
	newTimestamp := (baseline &^ 0x7FFF) | triggerTimestampField(word)
	if oldTriggerTimestamp >= 0 && newTimestamp <= oldTriggerTimestamp {
		newTimestamp += 1 << 15
		status |= TriggerTimestampOverflow
	}
	ip.triggerTimestamp = newTimestamp

	var newNumber int64
	if oldTriggerNumber < 0 {
		newNumber = triggerNumberField(word)
	} else {
		newNumber = (oldTriggerNumber &^ 0xFFFF) | triggerNumberField(word)
		if newNumber <= oldTriggerNumber {
			newNumber += 1 << 16
			status |= TriggerNumberOverflow
		}
	}
	ip.triggerNumber = newNumber

	// The very first observed trigger is never gap-checked: there is no
	// prior trigger number to have skipped past (spec §4.3; original
	// raw_data_interpreter.py guards this the same way).
	nMissing := int64(0)
	if oldTriggerNumber >= 0 {
		nMissing = newNumber - (oldTriggerNumber + 1)
	}
	if nMissing != 0 {
		if nMissing > 0 && ip.cfg.AddMissingEvents {
			for i := int64(0); i < nMissing; i++ {
				ip.eventNumber++
				ip.buf.appendTrigger(TriggerRecord{
					EventNumber:      ip.eventNumber,
					TriggerNumber:    oldTriggerNumber + 1 + i,
					TriggerTimestamp: -1,
					TriggerStatus:    NoTriggerWordError,
				})
			}
			if ip.metrics != nil {
				ip.metrics.missingEventsSynthesized.Add(float64(nMissing))
			}
		} else {
			status |= TriggerNumberError
			if ip.metrics != nil {
				ip.metrics.triggerErrors.Inc()
			}
		}
	}

	ip.eventNumber++
	ip.buf.appendTrigger(TriggerRecord{
		EventNumber:      ip.eventNumber,
		TriggerNumber:    newNumber,
		TriggerTimestamp: newTimestamp,
		TriggerStatus:    status,
	})
	if ip.metrics != nil {
		ip.metrics.triggersDecoded.Inc()
	}
}
