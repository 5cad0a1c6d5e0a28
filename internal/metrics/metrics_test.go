package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestAndExport(t *testing.T) {
	// Record a single request and ensure it appears in the export.
	RecordRequest("GET", "/progress/:id", 200, 42)

	out := Export()
	if !strings.Contains(out, "tubegrab_http_requests_total{method=\"GET\",path=\"/progress/:id\",status=\"200\"}") {
		t.Fatalf("expected HTTP request metric for GET /progress/:id in export, got:\n%s", out)
	}
	if !strings.Contains(out, "tubegrab_http_request_duration_ms_sum") || !strings.Contains(out, "tubegrab_http_request_duration_ms_count") {
		t.Fatalf("expected latency metrics headers in export, got:\n%s", out)
	}
}

func TestRecordDownloadMetrics(t *testing.T) {
	RecordDownloadStarted()
	RecordDownloadFinished("finished")
	RecordDownloadFinished("error")
	RecordFallbackFormat()
	RecordSaturationReject()

	out := Export()
	if !strings.Contains(out, "tubegrab_downloads_total{status=\"finished\"}") {
		t.Fatalf("expected finished download counter, got:\n%s", out)
	}
	if !strings.Contains(out, "tubegrab_downloads_total{status=\"error\"}") {
		t.Fatalf("expected error download counter, got:\n%s", out)
	}
	if !strings.Contains(out, "tubegrab_format_fallback_total") {
		t.Fatalf("expected fallback counter, got:\n%s", out)
	}
	if !strings.Contains(out, "tubegrab_submissions_rejected_total") {
		t.Fatalf("expected saturation counter, got:\n%s", out)
	}
}

func TestRecordDeliveryAndRetention(t *testing.T) {
	RecordDeliveryBytes("relay", 1024)
	RecordDeliveryBytes("local", 0) // no-op
	RecordRetentionJobs(3)

	out := Export()
	if !strings.Contains(out, "tubegrab_delivery_bytes_total{mode=\"relay\"}") {
		t.Fatalf("expected relay delivery bytes, got:\n%s", out)
	}
	if strings.Contains(out, "tubegrab_delivery_bytes_total{mode=\"local\"}") {
		t.Fatalf("zero-byte delivery should not create a series, got:\n%s", out)
	}
	if !strings.Contains(out, "tubegrab_retention_jobs_evicted_total") {
		t.Fatalf("expected retention counter, got:\n%s", out)
	}
}
