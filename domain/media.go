package domain

import "strings"

// MediaKind defines the type of a media attachment
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Media is a tagged media variant, assigned once at upload time
type Media struct {
	Kind MediaKind
	URL  string
}

// MediaKindFromContentType resolves the media kind from a declared MIME
// content type. Anything that is not a video renders as an image.
func MediaKindFromContentType(contentType string) MediaKind {
	if strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return MediaKindVideo
	}
	return MediaKindImage
}

// videoExtensions covers the formats the upload path accepts for video
var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".avi": true,
}

// MediaKindFromURL resolves the kind of a stored media URL. Persisted records
// carry only URLs, so the kind is assigned once here when the record is
// turned into a domain object, not re-inferred at render time.
func MediaKindFromURL(url string) MediaKind {
	if i := strings.LastIndex(url, "."); i >= 0 {
		if videoExtensions[strings.ToLower(url[i:])] {
			return MediaKindVideo
		}
	}
	return MediaKindImage
}
