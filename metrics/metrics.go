// Package metrics exposes the tracker's statistics as prometheus
// counters on an HTTP endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"track1090/track"
)

// Collector reads a Stats snapshot on every scrape. The snapshot
// function must be safe to call from the scrape goroutine.
type Collector struct {
	snapshot func() track.Stats

	messages       *prometheus.Desc
	modeAC         *prometheus.Desc
	uniqueAircraft *prometheus.Desc
	singleMessage  *prometheus.Desc
	cprOutcomes    *prometheus.Desc
	cprChecks      *prometheus.Desc
	cprKinds       *prometheus.Desc
}

func NewCollector(snapshot func() track.Stats) *Collector {
	return &Collector{
		snapshot: snapshot,
		messages: prometheus.NewDesc("track1090_messages_total",
			"Messages ingested", nil, nil),
		modeAC: prometheus.NewDesc("track1090_modeac_messages_total",
			"Mode A/C replies ingested", nil, nil),
		uniqueAircraft: prometheus.NewDesc("track1090_unique_aircraft_total",
			"Aircraft records ever created", nil, nil),
		singleMessage: prometheus.NewDesc("track1090_single_message_aircraft_total",
			"One-hit aircraft reaped by the periodic sweep", nil, nil),
		cprOutcomes: prometheus.NewDesc("track1090_cpr_decodes_total",
			"CPR decode outcomes", []string{"scope", "outcome"}, nil),
		cprChecks: prometheus.NewDesc("track1090_cpr_check_rejections_total",
			"CPR positions rejected by plausibility gates", []string{"scope", "check"}, nil),
		cprKinds: prometheus.NewDesc("track1090_cpr_messages_total",
			"CPR half-frames processed", []string{"kind"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.messages
	ch <- c.modeAC
	ch <- c.uniqueAircraft
	ch <- c.singleMessage
	ch <- c.cprOutcomes
	ch <- c.cprChecks
	ch <- c.cprKinds
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.messages, s.Messages)
	counter(c.modeAC, s.ModeAC)
	counter(c.uniqueAircraft, s.UniqueAircraft)
	counter(c.singleMessage, s.SingleMessageAircraft)

	counter(c.cprOutcomes, s.CPRGlobalOk, "global", "ok")
	counter(c.cprOutcomes, s.CPRGlobalBad, "global", "bad")
	counter(c.cprOutcomes, s.CPRGlobalSkipped, "global", "skipped")
	counter(c.cprOutcomes, s.CPRLocalOk, "local", "ok")
	counter(c.cprOutcomes, s.CPRLocalSkipped, "local", "skipped")

	counter(c.cprChecks, s.CPRGlobalRangeChecks, "global", "range")
	counter(c.cprChecks, s.CPRGlobalSpeedChecks, "global", "speed")
	counter(c.cprChecks, s.CPRLocalRangeChecks, "local", "range")
	counter(c.cprChecks, s.CPRLocalSpeedChecks, "local", "speed")

	counter(c.cprKinds, s.CPRSurface, "surface")
	counter(c.cprKinds, s.CPRAirborne, "airborne")
}

// Serve registers the collector and serves /metrics on addr. It blocks.
func Serve(addr string, snapshot func() track.Stats) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(snapshot)); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
