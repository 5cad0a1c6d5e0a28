package http

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	"tubegrab/internal/extract"
	"tubegrab/internal/formats"
	"tubegrab/internal/yturl"
)

// formatsHandler lists the available encodings for a video URL without
// downloading anything. Accepts POST with a JSON body or GET with a
// url query parameter.
func formatsHandler(c *fiber.Ctx) error {
	var url string
	if c.Method() == fiber.MethodGet {
		url = c.Query("url")
	} else {
		var reqBody FormatsRequest
		if err := c.BodyParser(&reqBody); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(FormatsResponse{
				Success: false,
				Code:    "BAD_REQUEST_INVALID_JSON",
				Error:   "Bad request, malformed JSON",
			})
		}
		url = reqBody.URL
	}
	url = strings.TrimSpace(url)

	if url == "" {
		return c.Status(fiber.StatusBadRequest).JSON(FormatsResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Missing required field 'url'",
		})
	}
	if !yturl.Valid(url) {
		return c.Status(fiber.StatusBadRequest).JSON(FormatsResponse{
			Success: false,
			Code:    "INVALID_URL",
			Error:   "Invalid YouTube URL",
		})
	}

	ext := c.Locals("extractor").(extract.Extractor)

	info, err := ext.Probe(c.Context(), url)
	if err != nil {
		// Surface the tool's own message: private video, geo block,
		// removed uploads and friends. The URL is the problem, not
		// this service, so the failure is the client's 400.
		return c.Status(fiber.StatusBadRequest).JSON(FormatsResponse{
			Success: false,
			Code:    "EXTRACTION_FAILED",
			Error:   err.Error(),
		})
	}

	viewCount := ""
	if info.ViewCount > 0 {
		viewCount = humanize.Comma(info.ViewCount)
	}

	return c.Status(fiber.StatusOK).JSON(FormatsResponse{
		Success:   true,
		Title:     info.Title,
		Uploader:  info.Uploader,
		Duration:  info.DurationString,
		ViewCount: viewCount,
		Thumbnail: info.Thumbnail,
		Formats:   formats.Options(info.Formats),
	})
}
