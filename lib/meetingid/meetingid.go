// Package meetingid derives stable meeting identifiers of the form
// {platform}_{instance}_{raw_id}. Identifiers are deterministic: the
// same source record always produces the same id across runs.
package meetingid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// paramPriority is the ordered list of query parameters and record
// fields inspected for a platform-native id. First hit wins.
var paramPriority = []string{
	"clip_id",
	"event_id",
	"meeting_id",
	"item_id",
	"id",
	"ID",
	"MeetingID",
}

var unsafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func sanitize(s string) string {
	return unsafe.ReplaceAllString(s, "")
}

// Compose joins the platform, instance and raw id into the canonical
// identifier, sanitizing each part independently.
func Compose(platform, instance, rawID string) string {
	return fmt.Sprintf("%s_%s_%s",
		sanitize(platform), sanitize(instance), sanitize(rawID))
}

// FromURL pulls a platform-native id out of the URL's query parameters
// and composes the full identifier. ok is false when no known parameter
// carries a value.
func FromURL(platform, instance, rawURL string) (id string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	q := u.Query()
	for _, key := range paramPriority {
		if v := q.Get(key); v != "" {
			return Compose(platform, instance, v), true
		}
	}
	return "", false
}

// FromRecord is FromURL for decoded JSON records: the priority list is
// matched against top-level fields instead of query parameters.
func FromRecord(platform, instance string, raw map[string]any) (id string, ok bool) {
	for _, key := range paramPriority {
		v, present := raw[key]
		if !present {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		// JSON numbers decode as float64; strip the ".0" suffix so
		// the id matches what the site renders.
		s = strings.TrimSuffix(s, ".0")
		if s != "" && s != "<nil>" {
			return Compose(platform, instance, s), true
		}
	}
	return "", false
}

// Hashed derives an id for records with no platform-native id: the
// first 16 hex characters of sha256 over the joined inputs. Pure
// function of its arguments, so re-scrapes reproduce the same id.
func Hashed(place, name, isoDatetime string) string {
	sum := sha256.Sum256([]byte(place + "|" + name + "|" + isoDatetime))
	return hex.EncodeToString(sum[:])[:16]
}
