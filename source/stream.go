// Package source describes the resolved streams handed to the download engine.
package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anisan-cli/anidl/util"
	"github.com/samber/mo"
)

// Language distinguishes subtitled releases from dubbed ones.
type Language int

const (
	Sub Language = iota
	Dub
)

// String returns the lowercase identifier used in filenames and reports.
func (l Language) String() string {
	if l == Dub {
		return "dub"
	}
	return "sub"
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(text []byte) error {
	parsed, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLanguage parses "sub" or "dub", ignoring case.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sub", "":
		return Sub, nil
	case "dub":
		return Dub, nil
	default:
		return Sub, fmt.Errorf("unknown language %q, expected sub or dub", s)
	}
}

// Subtitle is an external subtitle track accompanying a stream.
type Subtitle struct {
	URL string `json:"url"`
	// Format is the file extension of the track, e.g. "vtt" or "ass". Optional.
	Format string `json:"format,omitempty"`
}

// Stream is a resolved, playable media reference produced by a provider.
// It is treated as read-only by the downloader.
type Stream struct {
	URL        string              `json:"url"`
	Resolution int                 `json:"resolution"`
	Episode    float64             `json:"episode"`
	Language   Language            `json:"language"`
	Subtitles  map[string]Subtitle `json:"subtitles,omitempty"`
	Referrer   mo.Option[string]   `json:"referrer"`
}

// EpisodeString formats the episode number without a trailing fraction for whole episodes.
func (s *Stream) EpisodeString() string {
	return strconv.FormatFloat(s.Episode, 'f', -1, 64)
}

// Headers returns the HTTP headers required to fetch the stream.
func (s *Stream) Headers() map[string]string {
	headers := make(map[string]string)
	if referrer, ok := s.Referrer.Get(); ok && referrer != "" {
		headers["Referer"] = referrer
	}
	return headers
}

func (s *Stream) String() string {
	return fmt.Sprintf("EP%s %dp %s", s.EpisodeString(), s.Resolution, s.Language)
}

// Filename renders template with the fields of the stream and title, producing a
// file name without extension. Supported fields are {title}, {episode},
// {resolution} and {language}.
func (s *Stream) Filename(template, title string) string {
	name := strings.NewReplacer(
		"{title}", title,
		"{episode}", s.EpisodeString(),
		"{resolution}", strconv.Itoa(s.Resolution),
		"{language}", s.Language.String(),
	).Replace(template)

	return util.SanitizeFilename(name)
}
