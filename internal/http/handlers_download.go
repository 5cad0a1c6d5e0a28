package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tubegrab/internal/config"
	"tubegrab/internal/downloader"
	"tubegrab/internal/jobs"
	"tubegrab/internal/metrics"
)

// submitHandler accepts a (url, format_id) pair, fires off a download
// job, and returns its id without waiting for the download.
func submitHandler(c *fiber.Ctx) error {
	var reqBody SubmitRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(SubmitResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	pool := c.Locals("pool").(*downloader.Pool)

	id, err := pool.Submit(strings.TrimSpace(reqBody.URL), strings.TrimSpace(reqBody.FormatID))
	if err != nil {
		switch {
		case errors.Is(err, downloader.ErrInvalidURL):
			return c.Status(fiber.StatusBadRequest).JSON(SubmitResponse{
				Success: false,
				Code:    "INVALID_URL",
				Error:   "Invalid YouTube URL",
			})
		case errors.Is(err, downloader.ErrMissingFormat):
			return c.Status(fiber.StatusBadRequest).JSON(SubmitResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   "Missing required field 'format_id'",
			})
		case errors.Is(err, downloader.ErrSaturated):
			return c.Status(fiber.StatusTooManyRequests).JSON(SubmitResponse{
				Success: false,
				Code:    "QUEUE_SATURATED",
				Error:   "Too many concurrent downloads, try again later",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(SubmitResponse{
				Success: false,
				Code:    "SUBMIT_FAILED",
				Error:   err.Error(),
			})
		}
	}

	if loggerVal := c.Locals("logger"); loggerVal != nil {
		if lg, ok := loggerVal.(interface{ Info(msg string, args ...any) }); ok {
			lg.Info("download_submitted", "job_id", id, "url", reqBody.URL, "format_id", reqBody.FormatID)
		}
	}

	return c.Status(fiber.StatusOK).JSON(SubmitResponse{
		Success:    true,
		DownloadID: id,
	})
}

// progressHandler returns the current snapshot of a job. Pure read;
// never blocks on the worker.
func progressHandler(c *fiber.Ctx) error {
	reg := c.Locals("registry").(*jobs.Registry)

	job, ok := reg.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ProgressResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Status:  "not_found",
		})
	}

	resp := ProgressResponse{
		Success:  true,
		Status:   string(job.State.Status),
		Progress: job.State.Progress,
		Speed:    job.State.Speed,
		ETA:      job.State.ETA,
		Error:    job.State.Error,
	}
	if job.State.Status == jobs.StatusFinished && job.State.Result != nil {
		resp.Result = &ProgressResult{
			Filename:    job.State.Result.Filename,
			Title:       job.State.Result.Title,
			OriginalURL: job.URL,
			FormatID:    job.State.Result.FormatID,
		}
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// fetchHandler streams the finished artifact to the client: from local
// disk in local mode, or relayed from the upstream byte source in
// relay mode. Anything short of a finished job with a resolvable
// artifact is a 404.
func fetchHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	reg := c.Locals("registry").(*jobs.Registry)

	job, ok := reg.Get(c.Params("id"))
	if !ok || job.State.Status != jobs.StatusFinished || job.State.Result == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "download not found or not finished",
		})
	}
	res := job.State.Result

	disposition := fmt.Sprintf("attachment; filename=%q", res.Filename)

	if res.ArtifactPath != "" {
		fi, err := os.Stat(res.ArtifactPath)
		if err != nil {
			// Finished job whose artifact vanished from disk.
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "artifact no longer available",
			})
		}
		c.Set(fiber.HeaderContentDisposition, disposition)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		if err := c.SendFile(res.ArtifactPath); err != nil {
			return err
		}
		metrics.RecordDeliveryBytes("local", fi.Size())
		return nil
	}

	// Relay: stream from the recorded upstream URL without buffering
	// the payload.
	client := c.Locals("relayClient").(*http.Client)

	upReq, err := http.NewRequestWithContext(c.Context(), http.MethodGet, res.DirectURL, nil)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}
	upResp, err := client.Do(upReq)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Success: false,
			Code:    "UPSTREAM_FAILED",
			Error:   err.Error(),
		})
	}
	if upResp.StatusCode < 200 || upResp.StatusCode >= 300 {
		upResp.Body.Close()
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Success: false,
			Code:    "UPSTREAM_FAILED",
			Error:   "upstream returned " + upResp.Status,
		})
	}

	c.Set(fiber.HeaderContentDisposition, disposition)
	c.Set(fiber.HeaderContentType, "application/octet-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	size := -1
	if upResp.ContentLength > 0 {
		size = int(upResp.ContentLength)
		c.Set(fiber.HeaderContentLength, strconv.FormatInt(upResp.ContentLength, 10))
	}

	chunk := cfg.Delivery.ChunkSizeBytes
	if chunk <= 0 {
		chunk = 16 * 1024
	}
	c.Context().SetBodyStream(&meteredReader{rc: upResp.Body, chunk: chunk}, size)
	return nil
}

// meteredReader bounds per-read chunk size so relay memory use stays
// constant regardless of file size, and records delivered bytes when
// the stream is closed.
type meteredReader struct {
	rc    io.ReadCloser
	chunk int
	n     int64
}

func (m *meteredReader) Read(p []byte) (int, error) {
	if len(p) > m.chunk {
		p = p[:m.chunk]
	}
	n, err := m.rc.Read(p)
	m.n += int64(n)
	return n, err
}

func (m *meteredReader) Close() error {
	metrics.RecordDeliveryBytes("relay", m.n)
	return m.rc.Close()
}
