package jobs

// Status represents the lifecycle state of a download job in the
// registry. These values are served verbatim to polling clients.
//
// Centralizing these here avoids scattering string literals like
// "queued" or "finished" across packages.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
)

// Terminal reports whether no further transitions can occur from s.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusError
}
