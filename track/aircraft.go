package track

import "fmt"

// cprHalf is one stored CPR half-frame.
type cprHalf struct {
	Type CPRType
	Lat  int /* 17-bit fraction */
	Lon  int /* 17-bit fraction */
	NUC  int
}

// Aircraft is the consolidated state for one tracked airframe. Every
// optional field is paired with a validity cell; consumers must gate
// reads on the cell, the value itself is never cleared.
type Aircraft struct {
	Addr     uint32 /* ICAO address */
	HexAddr  string /* printable ICAO address */
	AddrType AddrType

	AltitudeBaro      int /* ft */
	AltitudeBaroValid Validity
	AltitudeGeom      int /* ft */
	AltitudeGeomValid Validity
	GeomDelta         int /* ft */
	GeomDeltaValid    Validity

	GS        float64 /* kt */
	GSValid   Validity
	IAS       int /* kt */
	IASValid  Validity
	TAS       int /* kt */
	TASValid  Validity
	Mach      float64
	MachValid Validity

	Track            float64 /* deg true */
	TrackValid       Validity
	TrackRate        float64 /* deg/s */
	TrackRateValid   Validity
	Roll             float64 /* deg */
	RollValid        Validity
	MagHeading       float64 /* deg */
	MagHeadingValid  Validity
	TrueHeading      float64 /* deg */
	TrueHeadingValid Validity

	BaroRate      int /* ft/min */
	BaroRateValid Validity
	GeomRate      int /* ft/min */
	GeomRateValid Validity

	Squawk        uint32 /* 4 octal digits, one per nibble */
	SquawkValid   Validity
	Callsign      string
	CallsignValid Validity
	Category      uint8
	CategoryValid Validity

	AirGround      AirGround
	AirGroundValid Validity

	AltSetting          float64 /* hPa */
	AltSettingValid     Validity
	IntentAltitude      int /* ft */
	IntentAltitudeValid Validity
	IntentHeading       float64
	IntentHeadingValid  Validity
	IntentModes         IntentModes
	IntentModesValid    Validity

	CPREven      cprHalf
	CPREvenValid Validity
	CPROdd       cprHalf
	CPROddValid  Validity

	Lat           float64
	Lon           float64
	PosNUC        int
	PositionValid Validity

	ADSBVersion int         /* -1 until an op status message is seen */
	ADSBHrd     HeadingType /* heading reference: magnetic or true */
	ADSBTah     HeadingType /* target heading/track disambiguation */

	FirstMessage *Message /* kept to emit once a second message confirms */
	Messages     uint64
	Seen         int64 /* message-clock time of the last message */

	SignalLevel [8]float64 /* ring of recent RSSI samples */
	SignalNext  int

	ModeAHit bool /* set when a sweep matches a Mode A reply; cleared on a squawk change */
	ModeCHit bool /* set when a sweep matches a Mode C reply; cleared on a 100 ft altitude change */
}

// Position returns the decoded position, gated on its validity.
func (a *Aircraft) Position() (lat, lon float64, ok bool) {
	if !a.PositionValid.Valid() {
		return 0, 0, false
	}
	return a.Lat, a.Lon, true
}

// AverageSignalLevel is the mean of the RSSI ring.
func (a *Aircraft) AverageSignalLevel() float64 {
	var sum float64
	for _, s := range a.SignalLevel {
		sum += s
	}
	return sum / float64(len(a.SignalLevel))
}

/* Per-field freshness configuration and dispatch. One entry per tracked
 * field; intervals are seconds. Altitude, squawk and air/ground change
 * meaningfully within seconds, so they go stale fast; everything else
 * holds for a minute. Entries with a nil present hook have their
 * acceptance routed outside the table walk (headings resolve against
 * aircraft state, CPR halves and position feed the position updater). */
type fieldSpec struct {
	name    string
	staleS  int64
	expireS int64
	cell    func(*Aircraft) *Validity
	present func(*Message) bool
	copy    func(*Aircraft, *Message)
}

var fieldTable = []fieldSpec{
	{
		name: "callsign", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.CallsignValid },
		present: func(m *Message) bool { return m.CallsignValid },
		copy:    func(a *Aircraft, m *Message) { a.Callsign = m.Callsign },
	},
	{
		name: "altitude", staleS: 15, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.AltitudeBaroValid },
		present: func(m *Message) bool { return m.AltitudeValid && m.AltitudeSource == AltSourceBaro },
		copy: func(a *Aircraft, m *Message) {
			if a.ModeCHit {
				newModeC := (m.Altitude + 49) / 100
				oldModeC := (a.AltitudeBaro + 49) / 100
				if newModeC != oldModeC {
					a.ModeCHit = false
				}
			}
			a.AltitudeBaro = m.Altitude
		},
	},
	{
		name: "altitude_geom", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.AltitudeGeomValid },
		present: func(m *Message) bool { return m.AltitudeValid && m.AltitudeSource == AltSourceGeom },
		copy:    func(a *Aircraft, m *Message) { a.AltitudeGeom = m.Altitude },
	},
	{
		name: "geom_delta", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.GeomDeltaValid },
		present: func(m *Message) bool { return m.GeomDeltaValid },
		copy:    func(a *Aircraft, m *Message) { a.GeomDelta = m.GeomDelta },
	},
	{
		name: "gs", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.GSValid },
		present: func(m *Message) bool { return m.GSValid },
		copy:    func(a *Aircraft, m *Message) { a.GS = m.GS },
	},
	{
		name: "ias", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.IASValid },
		present: func(m *Message) bool { return m.IASValid },
		copy:    func(a *Aircraft, m *Message) { a.IAS = m.IAS },
	},
	{
		name: "tas", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.TASValid },
		present: func(m *Message) bool { return m.TASValid },
		copy:    func(a *Aircraft, m *Message) { a.TAS = m.TAS },
	},
	{
		name: "mach", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.MachValid },
		present: func(m *Message) bool { return m.MachValid },
		copy:    func(a *Aircraft, m *Message) { a.Mach = m.Mach },
	},
	{
		name: "track", staleS: 60, expireS: 70,
		cell: func(a *Aircraft) *Validity { return &a.TrackValid },
	},
	{
		name: "track_rate", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.TrackRateValid },
		present: func(m *Message) bool { return m.TrackRateValid },
		copy:    func(a *Aircraft, m *Message) { a.TrackRate = m.TrackRate },
	},
	{
		name: "roll", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.RollValid },
		present: func(m *Message) bool { return m.RollValid },
		copy:    func(a *Aircraft, m *Message) { a.Roll = m.Roll },
	},
	{
		name: "mag_heading", staleS: 60, expireS: 70,
		cell: func(a *Aircraft) *Validity { return &a.MagHeadingValid },
	},
	{
		name: "true_heading", staleS: 60, expireS: 70,
		cell: func(a *Aircraft) *Validity { return &a.TrueHeadingValid },
	},
	{
		name: "baro_rate", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.BaroRateValid },
		present: func(m *Message) bool { return m.BaroRateValid },
		copy:    func(a *Aircraft, m *Message) { a.BaroRate = m.BaroRate },
	},
	{
		name: "geom_rate", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.GeomRateValid },
		present: func(m *Message) bool { return m.GeomRateValid },
		copy:    func(a *Aircraft, m *Message) { a.GeomRate = m.GeomRate },
	},
	{
		name: "squawk", staleS: 15, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.SquawkValid },
		present: func(m *Message) bool { return m.SquawkValid },
		copy: func(a *Aircraft, m *Message) {
			if m.Squawk != a.Squawk {
				a.ModeAHit = false
			}
			a.Squawk = m.Squawk
		},
	},
	{
		name: "category", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.CategoryValid },
		present: func(m *Message) bool { return m.CategoryValid },
		copy:    func(a *Aircraft, m *Message) { a.Category = m.Category },
	},
	{
		name: "airground", staleS: 15, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.AirGroundValid },
		present: func(m *Message) bool { return m.AirGroundValid && m.AirGround != AirGroundInvalid },
		copy:    func(a *Aircraft, m *Message) { a.AirGround = m.AirGround },
	},
	{
		name: "alt_setting", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.AltSettingValid },
		present: func(m *Message) bool { return m.Intent.AltSettingValid },
		copy:    func(a *Aircraft, m *Message) { a.AltSetting = m.Intent.AltSetting },
	},
	{
		name: "intent_altitude", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.IntentAltitudeValid },
		present: func(m *Message) bool { return m.Intent.MCPAltitudeValid || m.Intent.FMSAltitudeValid },
		copy: func(a *Aircraft, m *Message) {
			/* MCP wins unless the aircraft says it is flying the FMS value. */
			switch {
			case m.Intent.MCPAltitudeValid && m.Intent.AltitudeSource != IntentAltFMS:
				a.IntentAltitude = m.Intent.MCPAltitude
			case m.Intent.FMSAltitudeValid:
				a.IntentAltitude = m.Intent.FMSAltitude
			default:
				a.IntentAltitude = m.Intent.MCPAltitude
			}
		},
	},
	{
		name: "intent_heading", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.IntentHeadingValid },
		present: func(m *Message) bool { return m.Intent.HeadingValid },
		copy:    func(a *Aircraft, m *Message) { a.IntentHeading = m.Intent.Heading },
	},
	{
		name: "intent_modes", staleS: 60, expireS: 70,
		cell:    func(a *Aircraft) *Validity { return &a.IntentModesValid },
		present: func(m *Message) bool { return m.Intent.ModesValid },
		copy:    func(a *Aircraft, m *Message) { a.IntentModes = m.Intent.Modes },
	},
	{
		name: "cpr_odd", staleS: 60, expireS: 70,
		cell: func(a *Aircraft) *Validity { return &a.CPROddValid },
	},
	{
		name: "cpr_even", staleS: 60, expireS: 70,
		cell: func(a *Aircraft) *Validity { return &a.CPREvenValid },
	},
	{
		name: "position", staleS: 60, expireS: 70,
		cell: func(a *Aircraft) *Validity { return &a.PositionValid },
	},
}

// newAircraft builds the record for a first sighting. The first message
// is kept verbatim so it can be emitted once a second one confirms the
// address.
func newAircraft(m *Message) *Aircraft {
	a := &Aircraft{
		Addr:     m.Addr,
		HexAddr:  fmt.Sprintf("%06X", m.Addr),
		AddrType: m.AddrType,

		/* defaults until we see an op status message */
		ADSBVersion: -1,
		ADSBHrd:     HeadingMagnetic,
		ADSBTah:     HeadingGroundTrack,
	}

	for i := range a.SignalLevel {
		a.SignalLevel[i] = 1e-5
	}

	first := *m
	a.FirstMessage = &first

	for _, f := range fieldTable {
		cell := f.cell(a)
		cell.staleInterval = f.staleS * 1000
		cell.expireInterval = f.expireS * 1000
	}

	return a
}
