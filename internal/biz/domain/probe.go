package domain

import "time"

// ProbeReason explains why a file is not ready
type ProbeReason string

const (
	ReasonNone             ProbeReason = ""
	ReasonNotFound         ProbeReason = "NOT_FOUND"
	ReasonEmpty            ProbeReason = "EMPTY"
	ReasonRecentlyModified ProbeReason = "RECENTLY_MODIFIED"
	ReasonAccessDenied     ProbeReason = "ACCESS_DENIED"
)

// ProbeResult is the readiness state of a file.
// Exists is true only when the file is present, non-empty, settled and readable.
type ProbeResult struct {
	Exists     bool
	Reason     ProbeReason
	Size       int64
	ModifiedAt time.Time
}

// Ready reports whether the file can be attached
func (r ProbeResult) Ready() bool {
	return r.Exists && r.Reason == ReasonNone
}

// Settling reports whether the file exists but may still be written
func (r ProbeResult) Settling() bool {
	return r.Reason == ReasonEmpty || r.Reason == ReasonRecentlyModified
}
