package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"studyzone/internal/qerrors"
)

var youtubeURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/user/[^/]+/\w/|youtube\.com/attribution_link\?a=.*?&u=/watch\?v=|youtube\.com/attribution_link\?a=.*?&u=%2Fwatch%3Fv%3D|youtube\.com/shorts/)([^#&?/\s]{11})`),
	regexp.MustCompile(`youtube\.com/\w+/\w+/([^#&?/\s]{11})`),
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseYouTubeVideoID extracts the 11 character video id from the usual YouTube link shapes.
func ParseYouTubeVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, p := range youtubeURLPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			return m[1], nil
		}
	}

	// watch links whose v parameter is not the first one
	if u, err := url.Parse(raw); err == nil && strings.HasSuffix(strings.ToLower(u.Hostname()), "youtube.com") {
		if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
			return v, nil
		}
	}

	return "", fmt.Errorf("%w: %q", qerrors.InvalidVideoURLError, raw)
}

// YouTubeThumbnailURL returns the high quality thumbnail of a video.
func YouTubeThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
}
