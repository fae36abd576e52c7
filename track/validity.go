package track

// Source identifies the feed a datum came from. Higher values are more
// trustworthy; SourceInvalid is the zero value so an untouched cell
// never reads as live data.
type Source int

const (
	SourceInvalid      Source = iota
	SourceModeAC              /* Mode A/C reply */
	SourceADSBWithCPR         /* ADS-B squitter recovered by error correction */
	SourceModeSChecked        /* Mode S reply, CRC checked against known address */
	SourceMLAT                /* multilateration solution */
	SourceADSB                /* ADS-B squitter with valid CRC */
)

func (s Source) String() string {
	switch s {
	case SourceModeAC:
		return "MODE_AC"
	case SourceADSBWithCPR:
		return "ADSB_WITH_CPR"
	case SourceModeSChecked:
		return "MODE_S_CHECKED"
	case SourceMLAT:
		return "MLAT"
	case SourceADSB:
		return "ADSB_VALID"
	default:
		return "INVALID"
	}
}

// Validity is the freshness record attached to every trackable field.
// While source is live, updated <= stale <= expires holds.
type Validity struct {
	source  Source
	updated int64 /* when the data was last updated */
	stale   int64 /* when the data becomes stale (a worse source may replace it) */
	expires int64 /* when the data expires entirely */

	staleInterval  int64
	expireInterval int64
}

// Valid reports whether the cell holds live data. The paired value must
// not be read when this is false.
func (v *Validity) Valid() bool { return v.source != SourceInvalid }

func (v *Validity) Source() Source { return v.source }

// Updated returns the message-clock time of the last accepted update.
func (v *Validity) Updated() int64 { return v.updated }

// age of the cell relative to now; 0 for future-dated cells.
func (v *Validity) age(now int64) int64 {
	if now < v.updated {
		return 0
	}
	return now - v.updated
}

// accept is the gating rule for a new datum arriving from source at the
// tracker's message clock. Updates older than the cell are dropped, and a
// worse source cannot displace a better one until the cell goes stale.
// Equal timestamps are accepted so that the fields of a single message
// land in program order.
func (t *Tracker) accept(v *Validity, source Source) bool {
	now := t.now

	if now < v.updated {
		return false
	}

	if source < v.source && now < v.stale {
		return false
	}

	v.source = source
	v.updated = now
	v.stale = now + v.staleInterval
	v.expires = now + v.expireInterval
	return true
}

// combineValidity derives the cell of a compound field from its two
// inputs: the worse source, the later update, the earlier stale/expiry.
// The target keeps its own intervals. If either input is invalid the
// other is copied through whole.
func combineValidity(to, from1, from2 *Validity) {
	if from1.source == SourceInvalid {
		*to = *from2
		return
	}
	if from2.source == SourceInvalid {
		*to = *from1
		return
	}

	if from1.source < from2.source {
		to.source = from1.source
	} else {
		to.source = from2.source
	}
	if from1.updated > from2.updated {
		to.updated = from1.updated
	} else {
		to.updated = from2.updated
	}
	if from1.stale < from2.stale {
		to.stale = from1.stale
	} else {
		to.stale = from2.stale
	}
	if from1.expires < from2.expires {
		to.expires = from1.expires
	} else {
		to.expires = from2.expires
	}
}

// compareValidity decides which of two cells holds the more
// authoritative reading right now: a cell that is still fresh and from a
// strictly better source wins; otherwise the more recently updated one.
func (t *Tracker) compareValidity(lhs, rhs *Validity) int {
	now := t.now
	switch {
	case now < lhs.stale && lhs.source > rhs.source:
		return 1
	case now < rhs.stale && lhs.source < rhs.source:
		return -1
	case lhs.updated > rhs.updated:
		return 1
	case lhs.updated < rhs.updated:
		return -1
	default:
		return 0
	}
}
