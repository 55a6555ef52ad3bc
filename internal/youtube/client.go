// SPDX-License-Identifier: AGPL-3.0-only
package youtube

import (
	"context"
	"html"
	"time"

	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/velonavasiliki/youtube-agent/internal/errors"
	"github.com/velonavasiliki/youtube-agent/internal/logging"
	"github.com/velonavasiliki/youtube-agent/internal/model"
)

// SearchRequest describes one search round trip against the Data API.
type SearchRequest struct {
	Query string
	// Order is one of date, rating, relevance, viewCount.
	Order string
	// Duration is one of any, short (<4min), medium (4-20min), long (20min+).
	Duration        string
	MaxResults      int64
	PublishedAfter  time.Time
	PublishedBefore time.Time
}

// Searcher is the search capability the tool registry depends on.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]model.Video, error)
}

// Client wraps the YouTube Data API v3 search endpoint.
type Client struct {
	svc    *youtubeapi.Service
	logger *logging.Logger
}

// NewClient builds a Data API client authenticated with the given API key.
func NewClient(ctx context.Context, apiKey string, logger *logging.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.InvalidInput("YouTube API key is not set")
	}
	svc, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.ExternalCall("youtube service init", err)
	}
	return &Client{svc: svc, logger: logger}, nil
}

// Search runs one search and returns the matching videos keyed by their true
// video id. Results pending a live broadcast and non-video kinds are dropped.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]model.Video, error) {
	call := c.svc.Search.List([]string{"id", "snippet"}).
		Q(req.Query).
		Type("video").
		Order(req.Order).
		RelevanceLanguage("en").
		SafeSearch("strict").
		VideoDuration(req.Duration).
		VideoCaption("closedCaption").
		MaxResults(req.MaxResults).
		PublishedAfter(req.PublishedAfter.Format(time.RFC3339)).
		PublishedBefore(req.PublishedBefore.Format(time.RFC3339)).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return nil, errors.ExternalCall("youtube search", err)
	}

	videos := make([]model.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Snippet == nil {
			continue
		}
		// Skip videos set to premiere later and non-video result kinds.
		if item.Snippet.LiveBroadcastContent != "none" || item.Id.Kind != "youtube#video" {
			continue
		}
		videos = append(videos, model.Video{
			ID:          item.Id.VideoId,
			Title:       html.UnescapeString(item.Snippet.Title),
			Channel:     item.Snippet.ChannelTitle,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}

	c.logger.Debugf("YouTube search %q returned %d usable videos", req.Query, len(videos))
	return videos, nil
}
