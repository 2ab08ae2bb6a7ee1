// Package validate classifies candidate strings as YouTube video URLs and
// extracts their canonical video IDs. It is pure: no network, no side effects.
package validate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ytgrab/ytgrab/internal/media"
)

// VideoRef canonically identifies a remote video. Immutable once constructed.
type VideoRef struct {
	URL     string // canonical watch URL
	VideoID string
}

var videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Validate classifies candidate as a recognized video URL and returns its
// canonical reference, or an invalid_url error.
func Validate(candidate string) (VideoRef, error) {
	raw := strings.TrimSpace(candidate)
	if raw == "" {
		return VideoRef{}, media.Errorf(media.CategoryInvalidURL, "empty URL")
	}

	// Scheme is optional in pasted links.
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return VideoRef{}, media.Errorf(media.CategoryInvalidURL, "not a URL: %q", candidate)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return VideoRef{}, media.Errorf(media.CategoryInvalidURL, "unsupported scheme %q", parsed.Scheme)
	}

	id := extractVideoID(parsed)
	if id == "" {
		return VideoRef{}, media.Errorf(media.CategoryInvalidURL, "not a recognized video URL: %q", candidate)
	}

	return VideoRef{
		URL:     WatchURL(id),
		VideoID: id,
	}, nil
}

// IsVideoURL reports whether candidate validates, without the details.
func IsVideoURL(candidate string) bool {
	_, err := Validate(candidate)
	return err == nil
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}

func extractVideoID(parsed *url.URL) string {
	host := normalizeHostname(parsed)

	switch host {
	case "youtu.be":
		// https://youtu.be/VIDEO_ID
		return validID(strings.TrimPrefix(parsed.Path, "/"))

	case "youtube.com", "m.youtube.com", "music.youtube.com":
		// https://www.youtube.com/watch?v=VIDEO_ID
		if id := validID(parsed.Query().Get("v")); id != "" {
			return id
		}
		// /shorts/ID, /embed/ID, /live/ID
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(parts) == 2 {
			switch parts[0] {
			case "shorts", "embed", "live":
				return validID(parts[1])
			}
		}
	}
	return ""
}

func validID(candidate string) string {
	if videoIDRegex.MatchString(candidate) {
		return candidate
	}
	return ""
}

// normalizeHostname lowercases the host and strips "www." and any port.
func normalizeHostname(parsed *url.URL) string {
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
