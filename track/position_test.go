package track

import (
	"math"
	"testing"

	"track1090/cpr"
)

// stubCPR scripts the primitive results so the gates around them can be
// exercised precisely.
type stubCPR struct {
	lat, lon float64
	err      error

	airborneCalls int
	surfaceCalls  int
	relativeCalls int
}

func (s *stubCPR) Airborne(evenLat, evenLon, oddLat, oddLon int, useOdd bool) (float64, float64, error) {
	s.airborneCalls++
	return s.lat, s.lon, s.err
}

func (s *stubCPR) Surface(refLat, refLon float64, evenLat, evenLon, oddLat, oddLon int, useOdd bool) (float64, float64, error) {
	s.surfaceCalls++
	return s.lat, s.lon, s.err
}

func (s *stubCPR) Relative(refLat, refLon float64, cprLat, cprLon int, useOdd, surface bool) (float64, float64, error) {
	s.relativeCalls++
	return s.lat, s.lon, s.err
}

func cprMessage(addr uint32, ts int64, odd bool, lat17, lon17, nuc int) *Message {
	m := baseMessage(addr, ts)
	m.CPRValid = true
	m.CPROdd = odd
	m.CPRType = CPRAirborne
	m.CPRLat = lat17
	m.CPRLon = lon17
	m.CPRNucp = nuc
	return m
}

func TestGlobalCPRFreshAirbornePair(t *testing.T) {
	// The even half arrives at t=1s, the odd at t=4s; the pair is inside
	// the 10 s window and decodes globally.
	tr := newTestTracker(Config{}, cpr.Decoder{})

	tr.UpdateFromMessage(cprMessage(0x4840D6, 1000, false, 92095, 39846, 7))
	m := cprMessage(0x4840D6, 4000, true, 88385, 125818, 7)
	a := tr.UpdateFromMessage(m)

	if !m.CPRDecoded || m.CPRRelative {
		t.Fatalf("expected a global decode, got decoded=%v relative=%v", m.CPRDecoded, m.CPRRelative)
	}
	if !a.PositionValid.Valid() || a.PositionValid.Source() != SourceADSB {
		t.Errorf("position source = %v, want %v", a.PositionValid.Source(), SourceADSB)
	}
	if a.PosNUC != 7 {
		t.Errorf("pos_nuc = %d, want 7", a.PosNUC)
	}
	/* odd half arrived last, so the odd solution is reported */
	if math.Abs(a.Lat-10.2158) > 0.01 || math.Abs(a.Lon-123.889) > 0.01 {
		t.Errorf("position = (%.4f, %.4f), want (10.2158, 123.889)", a.Lat, a.Lon)
	}
	/* combined validity: worse source of the two halves, later update */
	if a.PositionValid.Updated() != 4000 {
		t.Errorf("position updated = %d, want 4000", a.PositionValid.Updated())
	}
	if tr.Stats.CPRGlobalOk != 1 {
		t.Errorf("cpr_global_ok = %d, want 1", tr.Stats.CPRGlobalOk)
	}
}

func TestGlobalCPRLateOddSkips(t *testing.T) {
	// Identical pair, but the odd half is 11 s late: the pairing window
	// is exceeded and, with no receiver location and no prior position,
	// the local fallback has nothing to anchor on.
	tr := newTestTracker(Config{}, cpr.Decoder{})

	tr.UpdateFromMessage(cprMessage(0x4840D6, 1000, false, 92095, 39846, 7))
	m := cprMessage(0x4840D6, 12000, true, 88385, 125818, 7)
	a := tr.UpdateFromMessage(m)

	if m.CPRDecoded {
		t.Fatal("decode committed despite the stale pair")
	}
	if a.PositionValid.Valid() {
		t.Error("position became valid without a decode")
	}
	if tr.Stats.CPRGlobalSkipped != 2 { /* the lone even half also skipped */
		t.Errorf("cpr_global_skipped = %d, want 2", tr.Stats.CPRGlobalSkipped)
	}
	if tr.Stats.CPRLocalSkipped != 2 {
		t.Errorf("cpr_local_skipped = %d, want 2", tr.Stats.CPRLocalSkipped)
	}
}

func commitPosition(t *testing.T, tr *Tracker, stub *stubCPR, addr uint32, ts int64, lat, lon float64) *Aircraft {
	t.Helper()
	stub.lat, stub.lon = lat, lon
	tr.UpdateFromMessage(cprMessage(addr, ts, false, 1000, 1000, 7))
	m := cprMessage(addr, ts, true, 2000, 2000, 7)
	a := tr.UpdateFromMessage(m)
	if !m.CPRDecoded {
		t.Fatalf("setup decode did not commit")
	}
	return a
}

func TestGlobalCPRSpeedGateRejection(t *testing.T) {
	// An aircraft fixed at (51,0) doing 400 kt cannot be at (52,0) five
	// seconds later; the fix is bad data and resets the CPR state.
	tr := newTestTracker(Config{}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	a := commitPosition(t, tr, stub, 0xA00001, 0, 51.0, 0.0)

	gs := baseMessage(0xA00001, 0)
	gs.GSValid = true
	gs.GS = 400
	tr.UpdateFromMessage(gs)

	stub.lat, stub.lon = 52.0, 0.0
	m := cprMessage(0xA00001, 5000, true, 3000, 3000, 7)
	tr.UpdateFromMessage(m)

	if m.CPRDecoded {
		t.Fatal("implausible fix was committed")
	}
	if tr.Stats.CPRGlobalBad != 1 {
		t.Errorf("cpr_global_bad = %d, want 1", tr.Stats.CPRGlobalBad)
	}
	if tr.Stats.CPRGlobalSpeedChecks != 1 {
		t.Errorf("cpr_global_speed_checks = %d, want 1", tr.Stats.CPRGlobalSpeedChecks)
	}
	if a.CPREvenValid.Valid() || a.CPROddValid.Valid() || a.PositionValid.Valid() {
		t.Error("bad fix must invalidate both halves and the position source")
	}
	/* the last coordinates stay readable for display layers */
	if a.Lat != 51.0 || a.Lon != 0.0 {
		t.Errorf("lat/lon = (%v, %v), want the previous (51, 0)", a.Lat, a.Lon)
	}
}

func TestGlobalCPRSpeedGateAllowsPlausibleMove(t *testing.T) {
	tr := newTestTracker(Config{}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	commitPosition(t, tr, stub, 0xA00002, 0, 51.0, 0.0)

	gs := baseMessage(0xA00002, 0)
	gs.GSValid = true
	gs.GS = 400
	tr.UpdateFromMessage(gs)

	/* ~1.1 km north after 5 s at 400 kt is fine */
	stub.lat, stub.lon = 51.01, 0.0
	m := cprMessage(0xA00002, 5000, true, 3000, 3000, 7)
	tr.UpdateFromMessage(m)

	if !m.CPRDecoded {
		t.Fatal("plausible fix rejected")
	}
	if tr.Stats.CPRGlobalBad != 0 {
		t.Errorf("cpr_global_bad = %d, want 0", tr.Stats.CPRGlobalBad)
	}
}

func TestGlobalCPRMLATSkipsSpeedGate(t *testing.T) {
	tr := newTestTracker(Config{}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	commitPosition(t, tr, stub, 0xA00003, 0, 51.0, 0.0)

	/* the same implausible jump, but from MLAT halves */
	stub.lat, stub.lon = 52.0, 0.0
	even := cprMessage(0xA00003, 4000, false, 1100, 1100, 7)
	even.Source = SourceMLAT
	tr.UpdateFromMessage(even)
	m := cprMessage(0xA00003, 5000, true, 3000, 3000, 7)
	m.Source = SourceMLAT
	tr.UpdateFromMessage(m)

	if !m.CPRDecoded {
		t.Fatal("MLAT fix should bypass the speed gate")
	}
	if tr.Stats.CPRGlobalSpeedChecks != 0 {
		t.Errorf("cpr_global_speed_checks = %d, want 0", tr.Stats.CPRGlobalSpeedChecks)
	}
}

func TestGlobalCPRRangeGateRejection(t *testing.T) {
	tr := newTestTracker(Config{
		UserLat: 51.0, UserLon: 0.0, UserLatLon: true,
		MaxRangeM: 100e3,
	}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	/* decode lands ~550 km away */
	stub.lat, stub.lon = 56.0, 0.0
	tr.UpdateFromMessage(cprMessage(0xA00004, 1000, false, 1000, 1000, 7))
	m := cprMessage(0xA00004, 2000, true, 2000, 2000, 7)
	a := tr.UpdateFromMessage(m)

	if m.CPRDecoded {
		t.Fatal("out-of-range fix was committed")
	}
	if tr.Stats.CPRGlobalBad != 1 || tr.Stats.CPRGlobalRangeChecks != 1 {
		t.Errorf("bad/range = %d/%d, want 1/1",
			tr.Stats.CPRGlobalBad, tr.Stats.CPRGlobalRangeChecks)
	}
	if a.CPREvenValid.Valid() || a.CPROddValid.Valid() {
		t.Error("bad fix must invalidate the stored halves")
	}
}

func TestPositionInvariantWithinMaxRange(t *testing.T) {
	// Whenever the position cell is live, the fix is inside max_range.
	tr := newTestTracker(Config{
		UserLat: 51.0, UserLon: 0.0, UserLatLon: true,
		MaxRangeM: 100e3,
	}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	a := commitPosition(t, tr, stub, 0xA00005, 1000, 51.3, 0.2)

	if !a.PositionValid.Valid() {
		t.Fatal("in-range fix did not commit")
	}
	if r := greatcircle(51.0, 0.0, a.Lat, a.Lon); r > 100e3 {
		t.Errorf("committed fix %0.f m away, beyond max range", r)
	}
}

func TestLocalCPRAgainstOwnPosition(t *testing.T) {
	tr := newTestTracker(Config{}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	a := commitPosition(t, tr, stub, 0xA00006, 0, 51.0, 0.0)

	/* a lone odd half 15 s later: pairing window gone, but the aircraft
	 * has a position to decode relative to */
	stub.lat, stub.lon = 51.02, 0.01
	m := cprMessage(0xA00006, 15000, true, 3000, 3000, 6)
	tr.UpdateFromMessage(m)

	if !m.CPRDecoded || !m.CPRRelative {
		t.Fatalf("expected a relative decode, got decoded=%v relative=%v", m.CPRDecoded, m.CPRRelative)
	}
	if a.Lat != 51.02 || a.Lon != 0.01 {
		t.Errorf("position = (%v, %v)", a.Lat, a.Lon)
	}
	if a.PosNUC != 6 {
		t.Errorf("pos_nuc = %d, want 6 (reduced to the new half)", a.PosNUC)
	}
	if a.PositionValid.Source() != SourceADSB {
		t.Errorf("position source = %v", a.PositionValid.Source())
	}
	if tr.Stats.CPRLocalOk != 1 {
		t.Errorf("cpr_local_ok = %d, want 1", tr.Stats.CPRLocalOk)
	}
}

func TestLocalCPRRangeLimitFromOwnPosition(t *testing.T) {
	tr := newTestTracker(Config{}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	commitPosition(t, tr, stub, 0xA00007, 0, 51.0, 0.0)

	/* 50 km limit against own position: a decode ~111 km away is dropped */
	stub.lat, stub.lon = 52.0, 0.0
	m := cprMessage(0xA00007, 15000, true, 3000, 3000, 0)
	tr.UpdateFromMessage(m)

	if m.CPRDecoded {
		t.Fatal("relative decode outside the 50 km limit was committed")
	}
	if tr.Stats.CPRLocalRangeChecks != 1 {
		t.Errorf("cpr_local_range_checks = %d, want 1", tr.Stats.CPRLocalRangeChecks)
	}
}

func TestLocalCPRReceiverAnchorRangeLimits(t *testing.T) {
	cases := []struct {
		name      string
		maxRange  float64
		wantLimit bool /* expect a commit for a fix 30 km out */
	}{
		{"no max range disables receiver anchor", 0, false},
		{"small max range anchors directly", 1852 * 100, true},
		{"full cell ambiguity gives up", 1852 * 360, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTracker(Config{
				UserLat: 51.0, UserLon: 0.0, UserLatLon: true,
				MaxRangeM: tc.maxRange,
			}, &stubCPR{})
			stub := tr.cpr.(*stubCPR)

			stub.lat, stub.lon = 51.27, 0.0 /* ~30 km north */
			m := cprMessage(0xA00008, 1000, true, 3000, 3000, 7)
			tr.UpdateFromMessage(m)

			if m.CPRDecoded != tc.wantLimit {
				t.Errorf("decoded = %v, want %v", m.CPRDecoded, tc.wantLimit)
			}
		})
	}
}

func TestLocalCPRWrapAroundMargin(t *testing.T) {
	// max_range between half and a full cell leaves only the wrap-around
	// margin 360NM - max_range as the usable limit.
	tr := newTestTracker(Config{
		UserLat: 51.0, UserLon: 0.0, UserLatLon: true,
		MaxRangeM: 1852 * 300,
	}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	/* limit is 1852*60 m = ~111 km; a fix 200 km out must be dropped */
	stub.lat, stub.lon = 52.8, 0.0
	m := cprMessage(0xA00009, 1000, true, 3000, 3000, 7)
	tr.UpdateFromMessage(m)

	if m.CPRDecoded {
		t.Fatal("fix beyond the wrap-around margin was committed")
	}
	if tr.Stats.CPRLocalRangeChecks != 1 {
		t.Errorf("cpr_local_range_checks = %d, want 1", tr.Stats.CPRLocalRangeChecks)
	}
}

func TestLocalCPRSurfaceNeedsOwnPosition(t *testing.T) {
	// A surface half-frame cannot anchor on the receiver.
	tr := newTestTracker(Config{
		UserLat: 51.0, UserLon: 0.0, UserLatLon: true,
		MaxRangeM: 1852 * 100,
	}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)
	stub.lat, stub.lon = 51.01, 0.0

	m := cprMessage(0xA0000A, 1000, true, 3000, 3000, 7)
	m.CPRType = CPRSurface
	tr.UpdateFromMessage(m)

	if m.CPRDecoded {
		t.Fatal("surface half decoded against the receiver anchor")
	}
	if stub.relativeCalls != 0 {
		t.Error("relative primitive called without a usable reference")
	}
}

func TestNUCMonotonicity(t *testing.T) {
	// A global decode against worse halves cannot raise the position NUC.
	tr := newTestTracker(Config{}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	a := commitPosition(t, tr, stub, 0xA0000B, 0, 51.0, 0.0)
	a.PosNUC = 5 /* degrade the committed fix */

	stub.lat, stub.lon = 51.001, 0.0
	tr.UpdateFromMessage(cprMessage(0xA0000B, 4000, false, 1100, 1100, 7))
	m := cprMessage(0xA0000B, 5000, true, 3100, 3100, 7)
	tr.UpdateFromMessage(m)

	if !m.CPRDecoded {
		t.Fatal("decode did not commit")
	}
	if a.PosNUC > 5 {
		t.Errorf("pos_nuc = %d, rose above the prior 5", a.PosNUC)
	}
}

func TestRangeHistogram(t *testing.T) {
	tr := newTestTracker(Config{
		UserLat: 51.0, UserLon: 0.0, UserLatLon: true,
		MaxRangeM:    100e3,
		RangeBuckets: 10,
		RangeHisto:   true,
	}, &stubCPR{})
	stub := tr.cpr.(*stubCPR)

	/* ~55.6 km north: bucket round(0.556*10) = 6. The even half commits
	 * once via the receiver anchor, the odd half again globally. */
	commitPosition(t, tr, stub, 0xA0000C, 1000, 51.5, 0.0)

	if got := tr.Stats.RangeHistogram[6]; got != 2 {
		t.Errorf("bucket 6 = %d, want 2 (histogram: %v)", got, tr.Stats.RangeHistogram)
	}
}

func TestSpeedCheckFallbackSpeeds(t *testing.T) {
	tr := newTestTracker(Config{}, nil)

	a := newAircraft(baseMessage(0xA0000D, 0))
	a.Lat, a.Lon = 51.0, 0.0
	a.PositionValid = Validity{source: SourceADSB, updated: 0, stale: 60000, expires: 70000}
	tr.now = 1000

	/* no speed data: the airborne guess is 600 kt * 4/3, allowing about
	 * 1.3 km over 1 s + slack; 1 km passes, 20 km does not */
	if !tr.speedCheck(a, 51.009, 0.0, false) {
		t.Error("1 km in 1 s rejected at the 600 kt default")
	}
	if tr.speedCheck(a, 51.18, 0.0, false) {
		t.Error("20 km in 1 s accepted")
	}

	/* surface clamp: even a fast surface target is capped at 150 kt,
	 * so 2 km in 1 s is out of reach */
	a.GS = 400
	a.GSValid = Validity{source: SourceADSB, updated: 0, stale: 60000, expires: 70000}
	if tr.speedCheck(a, 51.018, 0.0, true) {
		t.Error("surface speed clamp not applied")
	}
}
