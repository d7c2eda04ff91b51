package transcript

import "regexp"

// idPatterns cover the recognized YouTube URL shapes: watch?v=, youtu.be/,
// /embed/, /v/, legacy /u/<x>/ paths, and a trailing v= query parameter.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&?#/\s]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&?#/\s]+)`),
	regexp.MustCompile(`youtube\.com/u/\w/([^&?#/\s]+)`),
	regexp.MustCompile(`youtube\.com/.*[?&]v=([^&?#\s)]+)`),
}

// ExtractVideoID pulls the video identifier out of a YouTube URL. It
// returns "" when no recognized shape matches; the caller decides whether
// that is an error.
func ExtractVideoID(url string) string {
	for _, p := range idPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}
