package feed

import (
	"encoding/json"
	"testing"

	"track1090/track"
)

func buildTracker() *track.Tracker {
	tr := track.New(track.Config{}, nil, nil)

	m := &track.Message{
		Addr:      0x4840D6,
		AddrType:  track.AddrADSBICAO,
		Source:    track.SourceADSB,
		Timestamp: 1000,
		DF:        17,

		CallsignValid: true, Callsign: "KLM1023 ",
		AltitudeValid: true, Altitude: 38000, AltitudeSource: track.AltSourceBaro,
		GSValid: true, GS: 450,
		SquawkValid: true, Squawk: 0x1000,
	}
	tr.UpdateFromMessage(m)

	/* a second aircraft with nothing but a sighting */
	tr.UpdateFromMessage(&track.Message{
		Addr: 0xABCDEF, Source: track.SourceModeSChecked, Timestamp: 2000, DF: 11,
	})

	return tr
}

func TestSnapshot(t *testing.T) {
	tr := buildTracker()

	s := Snapshot(tr, 5000)

	if s.Now != 5.0 {
		t.Errorf("now = %v, want 5.0", s.Now)
	}
	if len(s.Aircraft) != 2 {
		t.Fatalf("aircraft count = %d, want 2", len(s.Aircraft))
	}

	var full, bare *Aircraft
	for i := range s.Aircraft {
		switch s.Aircraft[i].Hex {
		case "4840D6":
			full = &s.Aircraft[i]
		case "ABCDEF":
			bare = &s.Aircraft[i]
		}
	}
	if full == nil || bare == nil {
		t.Fatalf("missing aircraft in snapshot: %+v", s.Aircraft)
	}

	if full.Flight != "KLM1023 " || full.Squawk != "1000" {
		t.Errorf("flight/squawk = %q/%q", full.Flight, full.Squawk)
	}
	if full.AltBaro == nil || *full.AltBaro != 38000 {
		t.Error("baro altitude missing from snapshot")
	}
	if full.Lat != nil {
		t.Error("latitude present without a position fix")
	}
	if full.Seen != 4.0 {
		t.Errorf("seen = %v, want 4.0", full.Seen)
	}

	if bare.Flight != "" || bare.AltBaro != nil {
		t.Error("bare aircraft leaked invalid fields")
	}
}

func TestSnapshotOmitsInvalidFieldsInJSON(t *testing.T) {
	tr := buildTracker()

	body, err := json.Marshal(Snapshot(tr, 5000))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Scan
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(decoded.Aircraft) != 2 {
		t.Fatalf("round trip lost aircraft: %d", len(decoded.Aircraft))
	}

	/* invalid fields serialize as absent, not zero */
	for _, a := range decoded.Aircraft {
		if a.Hex == "ABCDEF" && a.AltBaro != nil {
			t.Error("invalid altitude serialized")
		}
	}
}
