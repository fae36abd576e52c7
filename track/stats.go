package track

// Stats is the tracker's counter bag. The tracker only ever increments;
// callers (display, metrics export) read. Counters follow the naming of
// the dump1090 stats block so downstream tooling can map them 1:1.
type Stats struct {
	Messages       uint64 /* messages ingested, Mode A/C included */
	ModeAC         uint64 /* Mode A/C replies */
	UniqueAircraft uint64 /* aircraft records ever created */

	SingleMessageAircraft uint64 /* one-hit records reaped by the sweep */

	CPRSurface  uint64
	CPRAirborne uint64

	CPRGlobalOk          uint64
	CPRGlobalBad         uint64
	CPRGlobalSkipped     uint64
	CPRGlobalRangeChecks uint64
	CPRGlobalSpeedChecks uint64

	CPRLocalOk          uint64
	CPRLocalSkipped     uint64
	CPRLocalRangeChecks uint64
	CPRLocalSpeedChecks uint64

	RangeHistogram []uint64 /* receiver-centered range buckets */
}
