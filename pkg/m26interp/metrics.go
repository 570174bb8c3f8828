// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Prometheus instrumentation, grounded on the teacher's use of
// github.com/prometheus/client_golang throughout pkg/metricstore. Each
// Interpreter registers its counters against the prometheus.Registerer
// passed to NewInterpreter (prometheus.DefaultRegisterer when nil). Metric
// names carry no per-instance discriminator beyond the "plane" label, so
// registering a second Interpreter against the same Registerer panics in
// MustRegister.
package m26interp

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	wordsClassified          *prometheus.CounterVec
	framesStarted            *prometheus.CounterVec
	framesPoisoned           *prometheus.CounterVec
	hitsDecoded              *prometheus.CounterVec
	triggersDecoded          prometheus.Counter
	triggerErrors            prometheus.Counter
	missingEventsSynthesized prometheus.Counter
	eventsSealed             prometheus.Counter
	bufferPurges             prometheus.Counter
	unknownWords             prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		wordsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "words_classified_total",
			Help:      "Raw words classified, by kind.",
		}, []string{"kind"}),
		framesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "frames_started_total",
			Help:      "Frame-header words seen, by plane.",
		}, []string{"plane"}),
		framesPoisoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "frames_poisoned_total",
			Help:      "Frames abandoned due to a structural violation, by plane.",
		}, []string{"plane"}),
		hitsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "hits_decoded_total",
			Help:      "Pixel hits decoded into the telescope buffer, by plane.",
		}, []string{"plane"}),
		triggersDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "triggers_decoded_total",
			Help:      "Trigger words decoded.",
		}),
		triggerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "trigger_errors_total",
			Help:      "Trigger words whose number did not follow the previous one.",
		}),
		missingEventsSynthesized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "missing_events_synthesized_total",
			Help:      "Placeholder events synthesized to fill trigger-number gaps.",
		}),
		eventsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "events_sealed_total",
			Help:      "Events fully matched against buffered telescope hits.",
		}),
		bufferPurges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "buffer_purges_total",
			Help:      "Telescope-hit entries dropped for exceeding the retention window.",
		}),
		unknownWords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "m26interp",
			Name:      "unknown_words_total",
			Help:      "Words matching neither the Mimosa26 nor the trigger bit pattern.",
		}),
	}
	reg.MustRegister(
		m.wordsClassified, m.framesStarted, m.framesPoisoned, m.hitsDecoded,
		m.triggersDecoded, m.triggerErrors, m.missingEventsSynthesized,
		m.eventsSealed, m.bufferPurges, m.unknownWords,
	)
	return m
}

func planeLabel(planeID uint8) string {
	return strconv.Itoa(int(planeID))
}
