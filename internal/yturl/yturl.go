package yturl

import (
	"net/url"
	"strings"
)

// Hosts accepted by Valid. Short-link hosts identify the video by path,
// canonical hosts by the "v" query parameter.
var allowedHosts = map[string]bool{
	"www.youtube.com": true,
	"youtube.com":     true,
	"youtu.be":        true,
}

// Valid reports whether raw is a YouTube video URL we are willing to
// hand to the extractor. The check is deliberately an allow-list: a
// parseable URL on any other host is rejected.
func Valid(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if !allowedHosts[host] {
		return false
	}
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/") != ""
	}
	return u.Query().Get("v") != ""
}
