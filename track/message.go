package track

// AddrType describes how directly an address was reported. Lower values
// are more direct; an aircraft's addrtype only ever narrows downward.
type AddrType int

const (
	AddrADSBICAO    AddrType = iota /* Mode S or ADS-B, ICAO address */
	AddrADSBICAONT                  /* ADS-B, transponder-less ICAO address */
	AddrADSRICAO                    /* rebroadcast ADS-B, ICAO address */
	AddrTISBICAO                    /* TIS-B, ICAO address */
	AddrADSBOther                   /* ADS-B, other address format */
	AddrADSROther                   /* rebroadcast ADS-B, other address format */
	AddrTISBTrackfile               /* TIS-B, trackfile number */
	AddrTISBOther                   /* TIS-B, other address format */
	AddrModeA                       /* Mode A/C, no address at all */
	AddrUnknown
)

// AltitudeSource distinguishes the two altitude references a message may
// carry.
type AltitudeSource int

const (
	AltSourceBaro AltitudeSource = iota
	AltSourceGeom
)

// HeadingType tags a heading/track value with its reference.
type HeadingType int

const (
	HeadingInvalid HeadingType = iota
	HeadingGroundTrack
	HeadingMagnetic
	HeadingTrue
	HeadingMagneticOrTrue /* magnetic or true, depending on the HRD bit */
	HeadingTrackOrHeading /* ground track or heading, depending on the TAH bit */
)

// AirGround is the reported air/ground state.
type AirGround int

const (
	AirGroundInvalid AirGround = iota
	AirGroundGround
	AirGroundAirborne
	AirGroundUncertain
)

// CPRType distinguishes the two CPR encodings; they use different cell
// sizes and cannot be paired with each other.
type CPRType int

const (
	CPRSurface CPRType = iota
	CPRAirborne
)

// IntentAltSource says which intent altitude the autopilot is flying.
type IntentAltSource int

const (
	IntentAltUnknown IntentAltSource = iota
	IntentAltMCP
	IntentAltFMS
)

// IntentModes are the active automation modes from a target state message.
type IntentModes struct {
	Autopilot bool
	VNAV      bool
	AltHold   bool
	Approach  bool
	LNAV      bool
	TCAS      bool
}

// Intent is the navigation intent sub-record of a message.
type Intent struct {
	MCPAltitudeValid bool
	MCPAltitude      int
	FMSAltitudeValid bool
	FMSAltitude      int
	AltitudeSource   IntentAltSource

	HeadingValid bool
	Heading      float64

	ModesValid bool
	Modes      IntentModes

	AltSettingValid bool
	AltSetting      float64 /* hPa */
}

// OpStatus is the operational status sub-record.
type OpStatus struct {
	Valid    bool
	Version  int
	HRDValid bool
	HRD      HeadingType /* HeadingMagnetic or HeadingTrue */
	TAHValid bool
	TAH      HeadingType /* HeadingGroundTrack or HeadingMagnetic */
}

// Message is one decoded surveillance message, the tracker's sole input.
// Every optional field carries its own validity flag; the tracker never
// reads a value whose flag is unset. The decoder fills this in; the
// tracker back-annotates the CPR outcome fields.
type Message struct {
	Addr        uint32 /* 24-bit ICAO address */
	AddrType    AddrType
	Source      Source
	Timestamp   int64   /* system timestamp of the message, ms */
	SignalLevel float64 /* RSSI, power ratio; 0 if unknown */
	DF          int     /* downlink format; 32 for Mode A/C */

	AltitudeValid  bool
	Altitude       int /* ft */
	AltitudeSource AltitudeSource

	GeomDeltaValid bool
	GeomDelta      int /* geometric minus baro altitude, ft */

	HeadingValid bool
	Heading      float64
	HeadingType  HeadingType

	SquawkValid bool
	Squawk      uint32 /* 4 octal digits, one per nibble */

	CallsignValid bool
	Callsign      string /* 8 characters */

	CategoryValid bool
	Category      uint8 /* 0xA0..0xD7 */

	AirGroundValid bool
	AirGround      AirGround

	GSValid   bool
	GS        float64 /* kt */
	IASValid  bool
	IAS       int /* kt */
	TASValid  bool
	TAS       int /* kt */
	MachValid bool
	Mach      float64

	BaroRateValid bool
	BaroRate      int /* ft/min */
	GeomRateValid bool
	GeomRate      int /* ft/min */

	TrackRateValid bool
	TrackRate      float64 /* deg/s */
	RollValid      bool
	Roll           float64 /* deg, negative left */

	CPRValid bool
	CPROdd   bool
	CPRType  CPRType
	CPRLat   int /* 17-bit fraction */
	CPRLon   int /* 17-bit fraction */
	CPRNucp  int

	Intent   Intent
	OpStatus OpStatus

	/* Results of position decoding, written back by the tracker. */
	CPRDecoded  bool
	CPRRelative bool
	DecodedLat  float64
	DecodedLon  float64
}
