// Package hls parses the subset of m3u8 playlists needed to download a stream:
// the ordered segments of a media playlist and the variants of a master playlist.
package hls

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// ErrNotPlaylist is returned when the input does not start with #EXTM3U.
var ErrNotPlaylist = errors.New("not an m3u8 playlist")

// Segment is a single media chunk. Ordinal is its position in the playlist and the only merge key.
type Segment struct {
	URI      string
	Ordinal  int
	Duration float64
}

// Variant is an alternate rendition listed by a master playlist.
type Variant struct {
	URI       string
	Bandwidth int
	Width     int
	Height    int
	Codecs    string
}

// Playlist is a parsed m3u8 document.
type Playlist struct {
	Segments []Segment
	// IsVariant is true for master playlists, which list renditions instead of segments.
	IsVariant bool
	Variants  []Variant
	// Encrypted is set when any #EXT-X-KEY uses a method other than NONE.
	Encrypted bool
	// Init is the fMP4 initialization section from #EXT-X-MAP, written before segment 0.
	Init *Segment
	// InitSections counts the distinct #EXT-X-MAP URIs. More than one means the
	// segments switch init sections, which a plain concatenation cannot express.
	InitSections int
	// ByteRange is set when a segment or the init section is a sub-range of its URI.
	ByteRange      bool
	TargetDuration float64
	MediaSequence  int
	EndList        bool
}

// Duration returns the sum of all segment durations in seconds.
func (p *Playlist) Duration() float64 {
	var total float64
	for _, s := range p.Segments {
		total += s.Duration
	}
	return total
}

// Parse reads a playlist from r. Relative URIs are resolved against base,
// which should be the URL the playlist was fetched from.
func Parse(r io.Reader, base string) (*Playlist, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		playlist       = &Playlist{}
		header         bool
		pendingVariant *Variant
		pendingInf     float64
		initURIs       = make(map[string]bool)
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !header {
			if !strings.HasPrefix(strings.TrimPrefix(line, "\ufeff"), "#EXTM3U") {
				return nil, ErrNotPlaylist
			}
			header = true
			continue
		}

		if !strings.HasPrefix(line, "#") {
			uri := resolve(baseURL, line)

			if pendingVariant != nil {
				pendingVariant.URI = uri
				playlist.Variants = append(playlist.Variants, *pendingVariant)
				pendingVariant = nil
				continue
			}

			playlist.Segments = append(playlist.Segments, Segment{
				URI:      uri,
				Ordinal:  len(playlist.Segments),
				Duration: pendingInf,
			})
			pendingInf = 0
			continue
		}

		tag, value, _ := strings.Cut(line, ":")
		switch tag {
		case "#EXT-X-STREAM-INF":
			playlist.IsVariant = true
			pendingVariant = parseVariant(parseAttributes(value))
		case "#EXT-X-I-FRAME-STREAM-INF", "#EXT-X-MEDIA":
			playlist.IsVariant = true
		case "#EXTINF":
			duration, _, _ := strings.Cut(value, ",")
			pendingInf, _ = strconv.ParseFloat(strings.TrimSpace(duration), 64)
		case "#EXT-X-KEY":
			if method := parseAttributes(value)["METHOD"]; method != "" && method != "NONE" {
				playlist.Encrypted = true
			}
		case "#EXT-X-MAP":
			attrs := parseAttributes(value)
			if attrs["BYTERANGE"] != "" {
				playlist.ByteRange = true
			}
			uri := resolve(baseURL, attrs["URI"])
			if !initURIs[uri] {
				initURIs[uri] = true
				playlist.InitSections++
			}
			if playlist.Init == nil {
				playlist.Init = &Segment{URI: uri, Ordinal: -1}
			}
		case "#EXT-X-BYTERANGE":
			playlist.ByteRange = true
		case "#EXT-X-TARGETDURATION":
			playlist.TargetDuration, _ = strconv.ParseFloat(value, 64)
		case "#EXT-X-MEDIA-SEQUENCE":
			playlist.MediaSequence, _ = strconv.Atoi(value)
		case "#EXT-X-ENDLIST":
			playlist.EndList = true
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}

	if !header {
		return nil, ErrNotPlaylist
	}

	return playlist, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(text, base string) (*Playlist, error) {
	return Parse(strings.NewReader(text), base)
}

func resolve(base *url.URL, uri string) string {
	ref, err := url.Parse(uri)
	if err != nil || base == nil {
		return uri
	}
	return base.ResolveReference(ref).String()
}

func parseVariant(attrs map[string]string) *Variant {
	v := &Variant{Codecs: attrs["CODECS"]}
	v.Bandwidth, _ = strconv.Atoi(attrs["BANDWIDTH"])

	if w, h, ok := strings.Cut(attrs["RESOLUTION"], "x"); ok {
		v.Width, _ = strconv.Atoi(w)
		v.Height, _ = strconv.Atoi(h)
	}

	return v
}

// parseAttributes splits an attribute list such as
// BANDWIDTH=1280000,CODECS="avc1.4d401f,mp4a.40.2" into a map with unquoted values.
func parseAttributes(list string) map[string]string {
	attrs := make(map[string]string)

	var (
		current  strings.Builder
		inQuotes bool
	)

	flush := func() {
		name, value, ok := strings.Cut(current.String(), "=")
		if ok {
			attrs[strings.TrimSpace(name)] = strings.Trim(strings.TrimSpace(value), `"`)
		}
		current.Reset()
	}

	for _, r := range list {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ',' && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return attrs
}
