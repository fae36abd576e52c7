package track

import (
	"github.com/sirupsen/logrus"
)

const (
	// AircraftTTL is how long an aircraft survives with no messages at all.
	AircraftTTL = 300 * 1000 /* ms */

	// OneHitTTL is the shorter lifetime of aircraft that only ever produced
	// a single message; these are usually corrupted addresses.
	OneHitTTL = 30 * 1000 /* ms */

	// modeACMinMessages is the per-sweep activity threshold for a Mode A/C
	// code to count as live.
	modeACMinMessages = 4
)

// DefaultRangeBuckets sizes the receiver-centered range histogram.
const DefaultRangeBuckets = 76

// CPRDecoder is the contract over the three CPR bit-decode primitives.
// The tracker only cares about the result kind: a decoded position or a
// refusal.
type CPRDecoder interface {
	// Airborne resolves a paired odd/even airborne half-frame globally.
	Airborne(evenLat, evenLon, oddLat, oddLon int, useOdd bool) (lat, lon float64, err error)
	// Surface resolves a paired surface half-frame; the reference must be
	// within about 45 NM for the smaller surface cell to disambiguate.
	Surface(refLat, refLon float64, evenLat, evenLon, oddLat, oddLon int, useOdd bool) (lat, lon float64, err error)
	// Relative resolves a single half-frame against a known reference.
	Relative(refLat, refLon float64, cprLat, cprLon int, useOdd, surface bool) (lat, lon float64, err error)
}

// Config is the process-wide tracker configuration.
type Config struct {
	UserLat      float64
	UserLon      float64
	UserLatLon   bool    /* receiver location is known */
	MaxRangeM    float64 /* 0 disables the range gate */
	RangeBuckets int     /* histogram buckets; DefaultRangeBuckets if 0 */
	RangeHisto   bool    /* maintain the range histogram */
}

// Tracker owns the aircraft table and all state derived from the message
// stream. It is not safe for concurrent use: ingest and the periodic
// sweep must run on a single goroutine.
type Tracker struct {
	cfg Config
	cpr CPRDecoder
	log *logrus.Logger

	aircraft map[uint32]*Aircraft

	now        int64 /* message clock, ms; set per ingested message */
	nextUpdate int64 /* wall-clock gate for the periodic sweep */

	modeAC modeACTable

	Stats Stats
}

// New builds a tracker around the given CPR decoder.
func New(cfg Config, dec CPRDecoder, log *logrus.Logger) *Tracker {
	if cfg.RangeBuckets == 0 {
		cfg.RangeBuckets = DefaultRangeBuckets
	}
	if log == nil {
		log = logrus.New()
	}
	t := &Tracker{
		cfg:      cfg,
		cpr:      dec,
		log:      log,
		aircraft: make(map[uint32]*Aircraft),
	}
	if cfg.RangeHisto {
		t.Stats.RangeHistogram = make([]uint64, cfg.RangeBuckets)
	}
	return t
}

// Aircraft looks up a tracked aircraft by ICAO address.
func (t *Tracker) Aircraft(addr uint32) (*Aircraft, bool) {
	a, ok := t.aircraft[addr]
	return a, ok
}

// Len reports the number of tracked aircraft.
func (t *Tracker) Len() int { return len(t.aircraft) }

// Each calls fn for every tracked aircraft. Iteration order is
// unspecified; fn must not add or remove aircraft.
func (t *Tracker) Each(fn func(*Aircraft)) {
	for _, a := range t.aircraft {
		fn(a)
	}
}

// findOrCreate returns the record for m's address, creating it on first
// sighting.
func (t *Tracker) findOrCreate(m *Message) *Aircraft {
	if a, ok := t.aircraft[m.Addr]; ok {
		return a
	}
	a := newAircraft(m)
	t.aircraft[m.Addr] = a
	t.Stats.UniqueAircraft++
	t.log.WithFields(logrus.Fields{"addr": a.HexAddr, "source": m.Source.String()}).
		Debug("new aircraft")
	return a
}

func (t *Tracker) remove(a *Aircraft) {
	delete(t.aircraft, a.Addr)
}
