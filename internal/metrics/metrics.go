package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and downloads.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	downloadsStarted  int64
	downloadsTotal    = make(map[string]int64) // by terminal status
	fallbackSelected  int64
	deliveryBytes     = make(map[string]int64) // by delivery mode
	retentionEvicted  int64
	rejectedSaturated int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordDownloadStarted counts a job accepted into the worker pool.
func RecordDownloadStarted() {
	mu.Lock()
	defer mu.Unlock()
	downloadsStarted++
}

// RecordDownloadFinished counts a job reaching a terminal status
// ("finished" or "error").
func RecordDownloadFinished(status string) {
	mu.Lock()
	defer mu.Unlock()
	downloadsTotal[status]++
}

// RecordFallbackFormat counts jobs that completed with a format other
// than the literally requested one.
func RecordFallbackFormat() {
	mu.Lock()
	defer mu.Unlock()
	fallbackSelected++
}

// RecordSaturationReject counts submissions refused because the worker
// pool was full.
func RecordSaturationReject() {
	mu.Lock()
	defer mu.Unlock()
	rejectedSaturated++
}

// RecordDeliveryBytes adds to the byte counter for a delivery mode
// ("local" or "relay").
func RecordDeliveryBytes(mode string, n int64) {
	if n <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	deliveryBytes[mode] += n
}

// RecordRetentionJobs increments the counter of jobs evicted by the
// retention sweep.
func RecordRetentionJobs(evicted int64) {
	if evicted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionEvicted += evicted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP tubegrab_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE tubegrab_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})
	for _, k := range reqKeys {
		fmt.Fprintf(&b, "tubegrab_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, requestsTotal[k])
	}

	b.WriteString("# HELP tubegrab_http_request_duration_ms_sum Sum of request latencies in ms\n")
	b.WriteString("# TYPE tubegrab_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP tubegrab_http_request_duration_ms_count Count of requests for latency\n")
	b.WriteString("# TYPE tubegrab_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})
	for _, k := range latKeys {
		fmt.Fprintf(&b, "tubegrab_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "tubegrab_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	b.WriteString("# HELP tubegrab_downloads_started_total Total download jobs accepted\n")
	b.WriteString("# TYPE tubegrab_downloads_started_total counter\n")
	fmt.Fprintf(&b, "tubegrab_downloads_started_total %d\n", downloadsStarted)

	b.WriteString("# HELP tubegrab_downloads_total Download jobs reaching a terminal status\n")
	b.WriteString("# TYPE tubegrab_downloads_total counter\n")
	var statuses []string
	for s := range downloadsTotal {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(&b, "tubegrab_downloads_total{status=\"%s\"} %d\n", s, downloadsTotal[s])
	}

	b.WriteString("# HELP tubegrab_format_fallback_total Jobs completed via fallback format selection\n")
	b.WriteString("# TYPE tubegrab_format_fallback_total counter\n")
	fmt.Fprintf(&b, "tubegrab_format_fallback_total %d\n", fallbackSelected)

	b.WriteString("# HELP tubegrab_submissions_rejected_total Submissions refused because the pool was saturated\n")
	b.WriteString("# TYPE tubegrab_submissions_rejected_total counter\n")
	fmt.Fprintf(&b, "tubegrab_submissions_rejected_total %d\n", rejectedSaturated)

	b.WriteString("# HELP tubegrab_delivery_bytes_total Bytes served to clients by delivery mode\n")
	b.WriteString("# TYPE tubegrab_delivery_bytes_total counter\n")
	var modes []string
	for m := range deliveryBytes {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	for _, m := range modes {
		fmt.Fprintf(&b, "tubegrab_delivery_bytes_total{mode=\"%s\"} %d\n", m, deliveryBytes[m])
	}

	b.WriteString("# HELP tubegrab_retention_jobs_evicted_total Total jobs evicted by the retention sweep\n")
	b.WriteString("# TYPE tubegrab_retention_jobs_evicted_total counter\n")
	fmt.Fprintf(&b, "tubegrab_retention_jobs_evicted_total %d\n", retentionEvicted)

	return b.String()
}
