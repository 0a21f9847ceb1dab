// Package hls resolves an HLS playlist URL to the single media URL
// worth downloading. Master playlists have one variant selected by
// quality preference; media playlists pass through untouched.
package hls

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const streamInfPrefix = "#EXT-X-STREAM-INF:"

type (
	Variant struct {
		URI        string
		Bandwidth  int
		Resolution string
	}

	Playlist struct {
		// Master is false for media playlists, which carry no
		// variants and should be used directly.
		Master   bool
		Variants []Variant
	}

	ParseError struct {
		reason string
	}
)

func (err *ParseError) Error() string {
	return fmt.Sprintf("cannot parse HLS playlist: %s", err.reason)
}

// SelectSource fetches the playlist at playlistURL and returns the
// media URL matching the quality preference: "best" (the default for
// an empty string), "worst", or an exact bandwidth in bits per
// second. A media playlist resolves to itself regardless of quality.
func SelectSource(ctx context.Context, client *http.Client, playlistURL string, quality string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return "", &ParseError{err.Error()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &ParseError{err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ParseError{fmt.Sprintf("playlist request returned HTTP %d", resp.StatusCode)}
	}

	base, err := url.Parse(playlistURL)
	if err != nil {
		return "", &ParseError{err.Error()}
	}

	playlist, err := Parse(resp.Body, base)
	if err != nil {
		return "", err
	}

	if !playlist.Master {
		return playlistURL, nil
	}

	variant, err := playlist.Select(quality)
	if err != nil {
		return "", err
	}

	return variant.URI, nil
}

// Parse reads a playlist, classifying it as master or media and
// collecting the variants of a master. Variant URIs are resolved
// against the provided base URL.
func Parse(r io.Reader, base *url.URL) (*Playlist, error) {
	scanner := bufio.NewScanner(r)

	playlist := &Playlist{}
	var pending *Variant
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if first {
			if line != "#EXTM3U" {
				return nil, &ParseError{"missing #EXTM3U header"}
			}

			first = false
			continue
		}

		if strings.HasPrefix(line, streamInfPrefix) {
			playlist.Master = true
			pending = parseStreamInf(strings.TrimPrefix(line, streamInfPrefix))
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		// A bare URI line following EXT-X-STREAM-INF is that
		// variant's stream.
		if pending != nil {
			pending.URI = resolveURI(base, line)
			playlist.Variants = append(playlist.Variants, *pending)
			pending = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{err.Error()}
	} else if first {
		return nil, &ParseError{"empty playlist"}
	}

	return playlist, nil
}

// Select picks a variant by quality preference, sorting candidates
// by bandwidth (highest first) as the tie-break order.
func (playlist *Playlist) Select(quality string) (*Variant, error) {
	if len(playlist.Variants) == 0 {
		return nil, &ParseError{"master playlist contains no variants"}
	}

	variants := make([]Variant, len(playlist.Variants))
	copy(variants, playlist.Variants)
	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Bandwidth > variants[j].Bandwidth })

	switch quality {
	case "", "best":
		return &variants[0], nil
	case "worst":
		return &variants[len(variants)-1], nil
	}

	bandwidth, err := strconv.Atoi(quality)
	if err != nil {
		return nil, &ParseError{fmt.Sprintf("quality %q is not best, worst or a bandwidth", quality)}
	}

	for i := range variants {
		if variants[i].Bandwidth == bandwidth {
			return &variants[i], nil
		}
	}

	return nil, &ParseError{fmt.Sprintf("no variant with bandwidth %d", bandwidth)}
}

func parseStreamInf(attributes string) *Variant {
	variant := &Variant{}
	for _, attribute := range splitAttributes(attributes) {
		key, value, found := strings.Cut(attribute, "=")
		if !found {
			continue
		}

		switch key {
		case "BANDWIDTH":
			variant.Bandwidth, _ = strconv.Atoi(value)
		case "RESOLUTION":
			variant.Resolution = value
		}
	}

	return variant
}

// splitAttributes splits an attribute list on commas, ignoring the
// commas inside quoted values such as CODECS="avc1.64001f,mp4a.40.2".
func splitAttributes(attributes string) []string {
	var parts []string
	var current strings.Builder
	quoted := false
	for _, r := range attributes {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case r == ',' && !quoted:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

func resolveURI(base *url.URL, uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}

	if base == nil {
		return parsed.String()
	}

	return base.ResolveReference(parsed).String()
}
