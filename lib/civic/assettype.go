package civic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// AssetTypes is the standard vocabulary shared across platforms.
var AssetTypes = []string{
	"agenda",
	"minutes",
	"video",
	"audio",
	"packet",
	"attachment",
	"summary",
	"transcript",
}

// per-platform labels that don't reduce to a vocabulary word by
// lowercasing alone.
var assetTypeAliases = map[string]string{
	"agenda packet":     "packet",
	"meeting_meta_link": "agenda",
	"media":             "video",
	"captions":          "transcript",
}

const fuzzyThreshold = 0.93

// MapAssetType reduces a platform-specific label to the standard
// vocabulary: exact lookup first, then a fuzzy match against the
// vocabulary for near-miss spellings, and finally the cleaned label
// verbatim so no information is invented or discarded.
func MapAssetType(label string) string {
	clean := strings.ToLower(strings.TrimSpace(label))
	if clean == "" {
		return ""
	}
	if mapped, ok := assetTypeAliases[clean]; ok {
		return mapped
	}
	for _, t := range AssetTypes {
		if clean == t {
			return t
		}
	}
	best := ""
	bestScore := 0.0
	for _, t := range AssetTypes {
		score := matchr.JaroWinkler(clean, t, false)
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	if bestScore >= fuzzyThreshold {
		return best
	}
	return clean
}
