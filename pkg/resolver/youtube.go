package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`[a-zA-Z0-9_-]{11}`)

// IsURL reports whether input looks like a URL rather than search terms.
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}

// IsYouTubeURL reports whether the URL points at a YouTube host.
func IsYouTubeURL(input string) bool {
	host := hostOf(input)
	return host == "youtube.com" || host == "music.youtube.com" || host == "youtu.be"
}

// IsPlaylistURL reports whether the URL carries a playlist reference.
func IsPlaylistURL(input string) bool {
	if !IsYouTubeURL(input) {
		return false
	}
	parsed, err := url.Parse(withScheme(input))
	if err != nil {
		return false
	}
	return parsed.Query().Get("list") != "" || strings.HasPrefix(parsed.Path, "/playlist")
}

// ExtractVideoID pulls the 11-character video ID out of any of the usual
// YouTube URL shapes: watch, short-link, embed, shorts and live paths. An
// unrecognizable input falls back to scanning for an ID-shaped token;
// empty means no ID found.
func ExtractVideoID(input string) string {
	parsed, err := url.Parse(withScheme(input))
	if err != nil {
		return fallbackVideoID(input)
	}

	switch hostOf(input) {
	case "youtu.be":
		if id := firstPathSegment(parsed.Path); isVideoID(id) {
			return id
		}
	case "youtube.com", "music.youtube.com":
		if id := parsed.Query().Get("v"); isVideoID(id) {
			return id
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/", "/v/"} {
			if rest, ok := strings.CutPrefix(parsed.Path, prefix); ok {
				if id := firstPathSegment(rest); isVideoID(id) {
					return id
				}
			}
		}
	}
	return fallbackVideoID(input)
}

// ThumbnailURL builds the standard thumbnail location for a video ID.
func ThumbnailURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

// WatchURL builds the canonical watch page for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func hostOf(input string) string {
	parsed, err := url.Parse(withScheme(input))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host
}

func withScheme(input string) string {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return input
	}
	return "https://" + input
}

func firstPathSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(path, "/?&"); i >= 0 {
		path = path[:i]
	}
	return path
}

func isVideoID(s string) bool {
	return len(s) == 11 && videoIDPattern.MatchString(s)
}

func fallbackVideoID(input string) string {
	if match := videoIDPattern.FindString(input); match != "" {
		return match
	}
	return ""
}
