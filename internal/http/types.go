package http

import "tubegrab/internal/formats"

// ErrorResponse is the generic failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FormatsRequest is the POST /formats input shape; GET /formats takes
// the same url as a query parameter.
type FormatsRequest struct {
	URL string `json:"url"`
}

// FormatsResponse carries video metadata plus the selectable format
// list, highest quality first.
type FormatsResponse struct {
	Success   bool             `json:"success"`
	Code      string           `json:"code,omitempty"`
	Error     string           `json:"error,omitempty"`
	Title     string           `json:"title,omitempty"`
	Uploader  string           `json:"uploader,omitempty"`
	Duration  string           `json:"duration,omitempty"`
	ViewCount string           `json:"view_count,omitempty"`
	Thumbnail string           `json:"thumbnail,omitempty"`
	Formats   []formats.Option `json:"formats,omitempty"`
}

// SubmitRequest is the POST /download input shape.
type SubmitRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

// SubmitResponse returns the id the client polls with.
type SubmitResponse struct {
	Success    bool   `json:"success"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
	DownloadID string `json:"download_id,omitempty"`
}

// ProgressResult is embedded in a finished progress snapshot: enough
// for the client to construct a delivery request.
type ProgressResult struct {
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	OriginalURL string `json:"original_url"`
	FormatID    string `json:"format_id"`
}

// ProgressResponse is one polled snapshot of a job.
type ProgressResponse struct {
	Success  bool            `json:"success"`
	Code     string          `json:"code,omitempty"`
	Status   string          `json:"status,omitempty"`
	Progress float64         `json:"progress"`
	Speed    string          `json:"speed,omitempty"`
	ETA      string          `json:"eta,omitempty"`
	Error    string          `json:"error,omitempty"`
	Result   *ProgressResult `json:"result,omitempty"`
}
