// SPDX-License-Identifier: AGPL-3.0-only
package model

import (
	"fmt"
	"strings"
)

// Video is a single YouTube search result.
type Video struct {
	// ID is the canonical YouTube video identifier.
	ID string `json:"id"`
	// Title is the video title with HTML entities unescaped.
	Title string `json:"title"`
	// Channel is the publishing channel's title.
	Channel string `json:"channel"`
	// PublishedAt is the publish timestamp as reported by the API (RFC 3339).
	PublishedAt string `json:"published_at"`
	// Transcript holds the assembled transcript text once fetched, empty
	// otherwise.
	Transcript string `json:"transcript,omitempty"`
}

// URL returns the canonical watch URL for the video.
func (v Video) URL() string {
	return "https://youtube.com/watch?v=" + v.ID
}

// FormatVideos renders search results as the multi-line text handed back to
// the decision step. An empty result list yields a deterministic
// "no videos found" string carrying the query.
func FormatVideos(query string, videos []Video) string {
	if len(videos) == 0 {
		return fmt.Sprintf("No videos found for query: '%s'", query)
	}

	formatted := make([]string, 0, len(videos))
	for _, v := range videos {
		formatted = append(formatted, fmt.Sprintf(
			"Title: %s\nChannel: %s\nPublished: %s\nURL: %s\n",
			v.Title, v.Channel, v.PublishedAt, v.URL(),
		))
	}
	return strings.Join(formatted, "\n")
}
