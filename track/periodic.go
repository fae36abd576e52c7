package track

// PeriodicUpdate drives table maintenance off the wall clock: eviction
// and per-field expiry, then the Mode A/C correlation sweep. Calls are
// rate-limited to once a second, so it is safe to drive from a fast
// ticker.
func (t *Tracker) PeriodicUpdate(now int64) {
	if now < t.nextUpdate {
		return
	}
	t.nextUpdate = now + 1000

	t.removeStaleAircraft(now)
	t.matchModeAC(now)
}

// removeStaleAircraft evicts silent aircraft and expires the field cells
// of the survivors. Values are never zeroed; consumers gate on the cell.
func (t *Tracker) removeStaleAircraft(now int64) {
	for _, a := range t.aircraft {
		if now-a.Seen > AircraftTTL ||
			(a.Messages == 1 && now-a.Seen > OneHitTTL) {
			/* Aircraft that only ever sent one message are usually the
			 * product of a corrupted address; count them separately. */
			if a.Messages == 1 {
				t.Stats.SingleMessageAircraft++
			}
			t.remove(a)
			t.log.WithField("addr", a.HexAddr).Debug("aircraft evicted")
			continue
		}

		for _, f := range fieldTable {
			cell := f.cell(a)
			if cell.source != SourceInvalid && now >= cell.expires {
				cell.source = SourceInvalid
			}
		}
	}
}

// matchModeAC reconciles the Mode A/C histogram against the aircraft
// table: codes that match a tracked aircraft's squawk or Mode C altitude
// are flagged on the aircraft and attributed in the match array.
func (t *Tracker) matchModeAC(now int64) {
	for i := range t.modeAC.match {
		t.modeAC.match[i] = 0
	}

	for _, a := range t.aircraft {
		if now-a.Seen > 5000 {
			continue
		}

		if a.SquawkValid.Valid() {
			i := modeAToIndex(a.Squawk)
			if t.modeAC.count[i]-t.modeAC.lastcount[i] >= modeACMinMessages {
				a.ModeAHit = true
				t.markMatch(i, a.Addr)
			}
		}

		if a.AltitudeBaroValid.Valid() {
			modeC := (a.AltitudeBaro + 49) / 100

			/* Check the encoded altitude and its 100 ft neighbours; Mode C
			 * replies jitter across the boundary. */
			for _, c := range [3]int{modeC, modeC + 1, modeC - 1} {
				modeA := modeCToModeA(c)
				if modeA == 0 {
					continue
				}
				i := modeAToIndex(modeA)
				if t.modeAC.count[i]-t.modeAC.lastcount[i] >= modeACMinMessages {
					a.ModeCHit = true
					t.markMatch(i, a.Addr)
				}
			}
		}
	}

	for i := range t.modeAC.count {
		if t.modeAC.count[i] == 0 {
			continue
		}

		if t.modeAC.count[i]-t.modeAC.lastcount[i] < modeACMinMessages {
			t.modeAC.age[i]++
			if t.modeAC.age[i] > 15 {
				/* Not heard from for a while, forget the code. */
				t.modeAC.count[i] = 0
				t.modeAC.lastcount[i] = 0
				t.modeAC.age[i] = 0
				continue
			}
		} else if t.modeAC.match[i] != 0 {
			/* Matched codes start old so they age out quickly once the
			 * matching aircraft stops being tracked. */
			t.modeAC.age[i] = 10
		} else {
			t.modeAC.age[i] = 0
		}

		t.modeAC.lastcount[i] = t.modeAC.count[i]
	}
}

func (t *Tracker) markMatch(i int, addr uint32) {
	if t.modeAC.match[i] != 0 {
		t.modeAC.match[i] = allMatch
	} else {
		t.modeAC.match[i] = addr
	}
}
