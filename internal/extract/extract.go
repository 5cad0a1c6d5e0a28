package extract

import "context"

// Format is one downloadable encoding of a video as reported by the
// extraction tool.
type Format struct {
	ID       string
	Ext      string
	Height   int
	Filesize int64
	// Vcodec is "none" for audio-only entries.
	Vcodec string
	// URL is the direct media byte source, when the tool resolved one.
	URL string
}

// VideoInfo is the metadata returned by a probe, without downloading
// any media.
type VideoInfo struct {
	ID             string
	Title          string
	Uploader       string
	DurationString string
	ViewCount      int64
	Thumbnail      string
	Formats        []Format
}

// DownloadRequest describes one media download. OutputPath is a
// literal destination path; the caller decides naming.
type DownloadRequest struct {
	URL        string
	FormatID   string
	OutputPath string
}

// Progress is a single progress event emitted while a download runs.
// TotalBytes is the exact size when known; TotalBytesEstimate is the
// tool's guess when it is not. Speed and ETA are human-readable hints.
type Progress struct {
	DownloadedBytes    int64
	TotalBytes         int64
	TotalBytesEstimate int64
	Speed              string
	ETA                string
}

// Extractor is the external media-extraction capability: list the
// available encodings for a URL, and download one while reporting
// progress. Implementations must be safe for concurrent use.
type Extractor interface {
	Probe(ctx context.Context, url string) (*VideoInfo, error)
	Download(ctx context.Context, req DownloadRequest, onProgress func(Progress)) error
}
