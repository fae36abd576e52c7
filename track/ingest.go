package track

// UpdateFromMessage folds one decoded message into the aircraft table.
// It advances the message clock, so messages must arrive in timestamp
// order per source; older updates are dropped field by field.
func (t *Tracker) UpdateFromMessage(m *Message) *Aircraft {
	t.Stats.Messages++

	/* Mode A/C replies carry no address; they only feed the
	 * cross-correlation histogram. */
	if m.DF == 32 {
		t.Stats.ModeAC++
		t.modeAC.count[modeAToIndex(m.Squawk)]++
		return nil
	}

	/* All validity arithmetic runs on the message clock, not wall time,
	 * so replaying a captured stream reproduces identical state. */
	t.now = m.Timestamp

	a := t.findOrCreate(m)

	if m.SignalLevel > 0 {
		a.SignalLevel[a.SignalNext] = m.SignalLevel
		a.SignalNext = (a.SignalNext + 1) % len(a.SignalLevel)
	}

	a.Seen = t.now
	a.Messages++

	/* The address type only ever narrows toward a more direct report. */
	if m.AddrType < a.AddrType {
		a.AddrType = m.AddrType
	}

	/* Assume version 0 until an op status message says otherwise. */
	if a.ADSBVersion < 0 && m.Source == SourceADSB && m.AddrType == AddrADSBICAO {
		a.ADSBVersion = 0
	}

	for i := range fieldTable {
		f := &fieldTable[i]
		if f.present == nil || !f.present(m) {
			continue
		}
		if t.accept(f.cell(a), m.Source) {
			f.copy(a, m)
		}
	}

	if m.HeadingValid {
		t.acceptHeading(a, m)
	}

	if m.CPRValid {
		half := &a.CPREven
		cell := &a.CPREvenValid
		if m.CPROdd {
			half = &a.CPROdd
			cell = &a.CPROddValid
		}
		if t.accept(cell, m.Source) {
			half.Type = m.CPRType
			half.Lat = m.CPRLat
			half.Lon = m.CPRLon
			half.NUC = m.CPRNucp
		}
	}

	if m.OpStatus.Valid {
		a.ADSBVersion = m.OpStatus.Version
		if m.OpStatus.Version >= 1 {
			if m.OpStatus.HRDValid {
				a.ADSBHrd = m.OpStatus.HRD
			}
			if m.OpStatus.TAHValid {
				a.ADSBTah = m.OpStatus.TAH
			}
		}
	}

	/* Derive geometric altitude from baro + delta when both inputs are
	 * fresher than what the geometric cell holds. */
	if t.compareValidity(&a.AltitudeBaroValid, &a.AltitudeGeomValid) > 0 &&
		t.compareValidity(&a.GeomDeltaValid, &a.AltitudeGeomValid) > 0 {
		a.AltitudeGeom = a.AltitudeBaro + a.GeomDelta
		combineValidity(&a.AltitudeGeomValid, &a.AltitudeBaroValid, &a.GeomDeltaValid)
	}

	if m.CPRValid {
		t.updatePosition(a, m)
	}

	return a
}

// acceptHeading routes a heading value to the track, magnetic-heading or
// true-heading cell, resolving the ambiguous encodings through the
// aircraft's HRD and TAH bits.
func (t *Tracker) acceptHeading(a *Aircraft, m *Message) {
	htype := m.HeadingType
	switch htype {
	case HeadingMagneticOrTrue:
		htype = a.ADSBHrd
	case HeadingTrackOrHeading:
		htype = a.ADSBTah
	}

	switch htype {
	case HeadingGroundTrack:
		if t.accept(&a.TrackValid, m.Source) {
			a.Track = m.Heading
		}
	case HeadingMagnetic:
		if t.accept(&a.MagHeadingValid, m.Source) {
			a.MagHeading = m.Heading
		}
	case HeadingTrue:
		if t.accept(&a.TrueHeadingValid, m.Source) {
			a.TrueHeading = m.Heading
		}
	}
}
