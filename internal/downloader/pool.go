package downloader

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tubegrab/internal/config"
	"tubegrab/internal/extract"
	"tubegrab/internal/formats"
	"tubegrab/internal/fsutil"
	"tubegrab/internal/jobs"
	"tubegrab/internal/metrics"
	"tubegrab/internal/yturl"
)

var (
	// ErrInvalidURL means the submitted URL failed the allow-list check.
	ErrInvalidURL = errors.New("invalid YouTube URL")
	// ErrMissingFormat means no format id was supplied.
	ErrMissingFormat = errors.New("format_id is required")
	// ErrSaturated means the worker pool is at its concurrency ceiling.
	ErrSaturated = errors.New("too many concurrent downloads")
)

// Pool owns the download workers. Submissions acquire a slot without
// blocking and are rejected outright when the pool is full, so the
// fire-and-forget contract holds while concurrency stays bounded.
type Pool struct {
	cfg    *config.Config
	reg    *jobs.Registry
	ext    extract.Extractor
	logger *slog.Logger
	sem    chan struct{}

	// jobTimeout bounds a single worker run end to end. A job that
	// stalls past it is cancelled and ends in an error state.
	jobTimeout time.Duration
}

func NewPool(cfg *config.Config, reg *jobs.Registry, ext extract.Extractor, logger *slog.Logger) *Pool {
	max := cfg.Downloader.MaxConcurrent
	if max <= 0 {
		max = 4
	}
	timeout := time.Duration(cfg.Downloader.JobTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Pool{
		cfg:        cfg,
		reg:        reg,
		ext:        ext,
		logger:     logger,
		sem:        make(chan struct{}, max),
		jobTimeout: timeout,
	}
}

// Submit validates the request, registers a queued job, and hands it to
// a worker goroutine. It returns the job id immediately; it never waits
// on the download itself.
func (p *Pool) Submit(url, formatID string) (string, error) {
	if !yturl.Valid(url) {
		return "", ErrInvalidURL
	}
	if formatID == "" {
		return "", ErrMissingFormat
	}

	select {
	case p.sem <- struct{}{}:
	default:
		metrics.RecordSaturationReject()
		return "", ErrSaturated
	}

	id := newJobID()
	if err := p.reg.Create(id, url, formatID); err != nil {
		<-p.sem
		return "", err
	}
	metrics.RecordDownloadStarted()

	go p.run(id, url, formatID)
	return id, nil
}

// newJobID prefers uuidv7, falling back to random ids when the clock
// misbehaves.
func newJobID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

// run drives one job to a terminal state. The worker is single-use:
// one id, one run, exactly one terminal write.
func (p *Pool) run(id, url, formatID string) {
	defer func() { <-p.sem }()

	ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()

	p.reg.Update(id, jobs.State{Status: jobs.StatusDownloading})
	p.logger.Info("download_started", "job_id", id, "url", url, "format_id", formatID)

	result, err := p.download(ctx, id, url, formatID)
	if err != nil {
		p.reg.Update(id, jobs.State{Status: jobs.StatusError, Error: err.Error()})
		metrics.RecordDownloadFinished(string(jobs.StatusError))
		p.logger.Error("download_failed", "job_id", id, "url", url, "format_id", formatID, "error", err)
		return
	}

	p.reg.Update(id, jobs.State{Status: jobs.StatusFinished, Progress: 100, Result: result})
	metrics.RecordDownloadFinished(string(jobs.StatusFinished))
	p.logger.Info("download_completed", "job_id", id, "url", url, "format_id", result.FormatID, "filename", result.Filename)
}

func (p *Pool) download(ctx context.Context, id, url, requestedID string) (*jobs.Result, error) {
	// Fresh info query: the format list may have shifted since the
	// client saw it, hence the fallback below.
	info, err := p.ext.Probe(ctx, url)
	if err != nil {
		return nil, err
	}

	sel, fallback, err := formats.Resolve(info.Formats, requestedID)
	if err != nil {
		return nil, err
	}
	if fallback {
		metrics.RecordFallbackFormat()
		p.logger.Info("format_fallback", "job_id", id, "requested", requestedID, "selected", sel.ID, "height", sel.Height)
	}

	ext := sel.Ext
	if ext == "" {
		ext = "mp4"
	}
	title := info.Title
	if title == "" {
		title = "Unknown"
	}

	result := &jobs.Result{
		Title:    title,
		Filename: fsutil.SanitizeFilename(title + "." + ext),
		Ext:      ext,
		FormatID: sel.ID,
		Filesize: sel.Filesize,
	}

	if p.cfg.Downloader.Mode == "relay" {
		// Relay mode never touches disk: record the upstream byte
		// source and let delivery stream from it.
		if sel.URL == "" {
			return nil, errors.New("selected format has no direct media URL")
		}
		result.DirectURL = sel.URL
		return result, nil
	}

	outPath := filepath.Join(p.cfg.Downloader.Dir, id+"."+ext)

	// Carry the last computed percent forward: when neither an exact
	// nor an estimated total is known we keep the number and still
	// propagate the speed/eta hints.
	var lastPercent float64
	onProgress := func(pr extract.Progress) {
		total := pr.TotalBytes
		if total <= 0 {
			total = pr.TotalBytesEstimate
		}
		if total > 0 {
			lastPercent = float64(pr.DownloadedBytes) / float64(total) * 100
		}
		p.reg.Update(id, jobs.State{
			Status:   jobs.StatusDownloading,
			Progress: lastPercent,
			Speed:    pr.Speed,
			ETA:      pr.ETA,
		})
	}

	req := extract.DownloadRequest{URL: url, FormatID: sel.ID, OutputPath: outPath}
	if err := p.ext.Download(ctx, req, onProgress); err != nil {
		return nil, err
	}

	result.ArtifactPath = outPath
	return result, nil
}
