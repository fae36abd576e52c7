package mode_s

import (
	"encoding/hex"
	"math"
	"testing"

	"track1090/cpr"
	"track1090/track"
)

func newTestDecoder() *Decoder {
	d := &Decoder{}
	d.Init()
	return d
}

func frame(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad test frame %q: %v", s, err)
	}
	return b
}

func TestDecodeIdentificationFrame(t *testing.T) {
	// DF17 aircraft identification, the worked example from the mode-s.org
	// guide: ICAO 4840D6, callsign KLM1023.
	d := newTestDecoder()

	m, err := d.Decode(frame(t, "8D4840D6202CC371C32CE0576098"), 1000, 0.5)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if m.Addr != 0x4840D6 {
		t.Errorf("addr = %06X, want 4840D6", m.Addr)
	}
	if m.DF != 17 {
		t.Errorf("DF = %d, want 17", m.DF)
	}
	if m.Source != track.SourceADSB {
		t.Errorf("source = %v, want %v", m.Source, track.SourceADSB)
	}
	if m.AddrType != track.AddrADSBICAO {
		t.Errorf("addrtype = %v", m.AddrType)
	}
	if !m.CallsignValid || m.Callsign != "KLM1023 " {
		t.Errorf("callsign = %q valid=%v, want \"KLM1023 \"", m.Callsign, m.CallsignValid)
	}
	if !m.CategoryValid {
		t.Error("category not decoded")
	}
	if m.Timestamp != 1000 || m.SignalLevel != 0.5 {
		t.Error("timestamp/signal not carried through")
	}
}

func TestDecodeAirbornePositionFrame(t *testing.T) {
	// DF17 airborne position: ICAO 40621D, 38000 ft, even CPR half
	// (93000, 51372), type code 11 so NUCp 7.
	d := newTestDecoder()

	m, err := d.Decode(frame(t, "8D40621D58C382D690C8AC2863A7"), 2000, 0)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if m.Addr != 0x40621D {
		t.Errorf("addr = %06X, want 40621D", m.Addr)
	}
	if !m.AltitudeValid || m.Altitude != 38000 || m.AltitudeSource != track.AltSourceBaro {
		t.Errorf("altitude = %d valid=%v src=%v, want 38000 baro",
			m.Altitude, m.AltitudeValid, m.AltitudeSource)
	}
	if !m.CPRValid || m.CPROdd || m.CPRType != track.CPRAirborne {
		t.Errorf("cpr flags = valid=%v odd=%v type=%v", m.CPRValid, m.CPROdd, m.CPRType)
	}
	if m.CPRLat != 93000 || m.CPRLon != 51372 {
		t.Errorf("cpr = (%d, %d), want (93000, 51372)", m.CPRLat, m.CPRLon)
	}
	if m.CPRNucp != 7 {
		t.Errorf("nucp = %d, want 7", m.CPRNucp)
	}
	if !m.AirGroundValid || m.AirGround != track.AirGroundAirborne {
		t.Error("airborne position should set air/ground")
	}
}

func TestDecodePositionPairEndToEnd(t *testing.T) {
	// Feed the guide's even and odd halves through the decoder and the
	// tracker; the odd half arrives last, so the committed position is
	// the odd solution, about (52.2658, 3.9389).
	d := newTestDecoder()
	tr := track.New(track.Config{}, cpr.Decoder{}, nil)

	even, err := d.Decode(frame(t, "8D40621D58C382D690C8AC2863A7"), 1000, 0)
	if err != nil {
		t.Fatalf("even decode failed: %v", err)
	}
	tr.UpdateFromMessage(even)

	odd, err := d.Decode(frame(t, "8D40621D58C386435CC412692AD6"), 2000, 0)
	if err != nil {
		t.Fatalf("odd decode failed: %v", err)
	}
	a := tr.UpdateFromMessage(odd)

	if !odd.CPRDecoded {
		t.Fatal("pair did not decode")
	}
	lat, lon, ok := a.Position()
	if !ok {
		t.Fatal("position not valid after a global decode")
	}
	if math.Abs(lat-52.26) > 0.05 || math.Abs(lon-3.92) > 0.05 {
		t.Errorf("position = (%.4f, %.4f), want about (52.26, 3.92)", lat, lon)
	}
}

func TestDecodeVelocityFrame(t *testing.T) {
	// DF17 type 19 subtype 1, the mode-s.org ground speed example:
	// ICAO 485020, GS ~159 kt, track ~183 deg, descending at 832 ft/min.
	d := newTestDecoder()

	m, err := d.Decode(frame(t, "8D485020994409940838175B284F"), 3000, 0)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !m.GSValid || math.Abs(m.GS-159.20) > 0.5 {
		t.Errorf("gs = %.2f valid=%v, want ~159.2", m.GS, m.GSValid)
	}
	if !m.HeadingValid || m.HeadingType != track.HeadingGroundTrack {
		t.Fatalf("heading valid=%v type=%v", m.HeadingValid, m.HeadingType)
	}
	if math.Abs(m.Heading-182.88) > 0.5 {
		t.Errorf("track = %.2f, want ~182.9", m.Heading)
	}
	/* vertical rate source bit clear: GNSS-referenced */
	if !m.GeomRateValid || m.GeomRate != -832 {
		t.Errorf("geom rate = %d valid=%v, want -832", m.GeomRate, m.GeomRateValid)
	}
	if !m.GeomDeltaValid || m.GeomDelta != 550 {
		t.Errorf("geom delta = %d valid=%v, want 550", m.GeomDelta, m.GeomDeltaValid)
	}
}

func TestDecodeRejectsCorruptFrame(t *testing.T) {
	d := newTestDecoder()

	raw := frame(t, "8D4840D6202CC371C32CE0576098")
	raw[5] ^= 0x01
	raw[9] ^= 0x80
	raw[12] ^= 0x10 /* three errors, beyond repair */

	if _, err := d.Decode(raw, 1000, 0); err == nil {
		t.Error("expected a corrupt frame to be rejected")
	}
}

func TestDecodeRepairsSingleBitError(t *testing.T) {
	d := newTestDecoder()

	raw := frame(t, "8D4840D6202CC371C32CE0576098")
	raw[7] ^= 0x04

	m, err := d.Decode(raw, 1000, 0)
	if err != nil {
		t.Fatalf("single bit error not repaired: %v", err)
	}
	if m.Addr != 0x4840D6 {
		t.Errorf("addr = %06X after repair", m.Addr)
	}
	if m.Source != track.SourceADSBWithCPR {
		t.Errorf("repaired frame source = %v, want %v", m.Source, track.SourceADSBWithCPR)
	}
}

func TestBruteForceAPRecovery(t *testing.T) {
	// A DF17 sighting whitelists the address; an address-xored reply
	// for the same airframe then decodes as Mode S checked.
	d := newTestDecoder()

	if _, err := d.Decode(frame(t, "8D4840D6202CC371C32CE0576098"), 1000, 0); err != nil {
		t.Fatalf("whitelist frame failed: %v", err)
	}

	/* Build a DF0 short reply addressed to 4840D6: compute the AP field
	 * as CRC xor address. */
	raw := []byte{0x00, 0xA0, 0x20, 0x05, 0x00, 0x00, 0x00}
	crc := modesChecksum(raw, 56)
	addr := uint32(0x4840D6) ^ crc
	raw[4] = byte(addr >> 16)
	raw[5] = byte(addr >> 8)
	raw[6] = byte(addr)

	m, err := d.Decode(raw, 2000, 0)
	if err != nil {
		t.Fatalf("AP recovery failed: %v", err)
	}
	if m.Addr != 0x4840D6 {
		t.Errorf("recovered addr = %06X, want 4840D6", m.Addr)
	}
	if m.Source != track.SourceModeSChecked {
		t.Errorf("source = %v, want %v", m.Source, track.SourceModeSChecked)
	}
}

func TestBruteForceAPUnknownAddressRejected(t *testing.T) {
	d := newTestDecoder()

	raw := []byte{0x00, 0xA0, 0x20, 0x05, 0x12, 0x34, 0x56}
	if _, err := d.Decode(raw, 1000, 0); err == nil {
		t.Error("reply for an unseen address must be rejected")
	}
}

func TestDecodeIdentityField(t *testing.T) {
	cases := []struct {
		msg2, msg3 byte
		want       uint32
	}{
		{0x0A, 0xAA, 0x7700}, /* emergency squawk */
		{0x00, 0x00, 0x0000},
	}
	for _, tc := range cases {
		msg := []byte{0x28, 0x00, tc.msg2, tc.msg3, 0, 0, 0}
		if got := decodeIdentityField(msg); got != tc.want {
			t.Errorf("identity(%02X %02X) = %04X, want %04X", tc.msg2, tc.msg3, got, tc.want)
		}
	}
}

func TestGroundMovementEncoding(t *testing.T) {
	cases := []struct {
		mov  uint
		want float64
	}{
		{1, 0},
		{2, 0.125},
		{9, 1.0},
		{13, 2.0},
		{39, 15.0},
		{94, 70.0},
		{109, 100.0},
		{124, 175.0},
	}
	for _, tc := range cases {
		if got := groundMovement(tc.mov); math.Abs(got-tc.want) > 0.001 {
			t.Errorf("groundMovement(%d) = %v, want %v", tc.mov, got, tc.want)
		}
	}
}

func TestNucpFromMetype(t *testing.T) {
	cases := []struct{ metype, want int }{
		{5, 9}, {8, 6}, /* surface */
		{9, 9}, {18, 0}, /* airborne baro */
		{20, 9}, {22, 7}, /* airborne GNSS */
		{4, 0},
	}
	for _, tc := range cases {
		if got := nucpFromMetype(tc.metype); got != tc.want {
			t.Errorf("nucp(%d) = %d, want %d", tc.metype, got, tc.want)
		}
	}
}
