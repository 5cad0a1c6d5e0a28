package formats

import (
	"fmt"
	"sort"

	"tubegrab/internal/extract"
)

// Option is one selectable entry in the format list served to clients.
type Option struct {
	FormatID string `json:"format_id"`
	Quality  string `json:"quality"`
	Ext      string `json:"ext"`
	Filesize int64  `json:"filesize,omitempty"`
	Height   int    `json:"height"`
}

// QualityLabel renders the marketing-friendly bucket for a vertical
// resolution.
func QualityLabel(height int) string {
	switch {
	case height >= 2160:
		return "4K (2160p)"
	case height >= 1440:
		return "1440p (2K)"
	case height >= 1080:
		return "1080p (Full HD)"
	case height >= 720:
		return "720p (HD)"
	case height >= 480:
		return "480p"
	case height >= 360:
		return "360p"
	default:
		return fmt.Sprintf("%dp", height)
	}
}

// Options turns a raw extractor format list into the client-facing
// list: audio-only entries and entries without a known height are
// dropped rather than misrepresented, duplicates are collapsed by
// format id, and the result is sorted highest resolution first.
func Options(raw []extract.Format) []Option {
	seen := make(map[string]struct{}, len(raw))
	out := make([]Option, 0, len(raw))
	for _, f := range raw {
		if f.Vcodec == "none" || f.Height <= 0 || f.ID == "" {
			continue
		}
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}

		ext := f.Ext
		if ext == "" {
			ext = "mp4"
		}
		out = append(out, Option{
			FormatID: f.ID,
			Quality:  QualityLabel(f.Height),
			Ext:      ext,
			Filesize: f.Filesize,
			Height:   f.Height,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Height > out[j].Height })
	return out
}

// Resolve finds the format the worker should download. The literally
// requested id wins when it exists; otherwise the highest-resolution
// format that still has a usable video stream is selected, so a stale
// format id degrades gracefully instead of failing the job. The second
// return reports whether a fallback was taken.
func Resolve(raw []extract.Format, requestedID string) (extract.Format, bool, error) {
	for _, f := range raw {
		if f.ID == requestedID {
			return f, false, nil
		}
	}

	var best extract.Format
	found := false
	for _, f := range raw {
		if f.Vcodec == "" || f.Vcodec == "none" || f.URL == "" {
			continue
		}
		if !found || f.Height > best.Height {
			best = f
			found = true
		}
	}
	if !found {
		return extract.Format{}, false, fmt.Errorf("no suitable format found")
	}
	return best, true, nil
}
