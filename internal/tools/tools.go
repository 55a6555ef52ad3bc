// SPDX-License-Identifier: AGPL-3.0-only

// Package tools holds the closed registry of built-in tool functions the
// decision step may invoke. Tool names parse into a fixed enum at the
// dispatch boundary; unknown names are rejected there.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/velonavasiliki/youtube-agent/internal/agent"
	"github.com/velonavasiliki/youtube-agent/internal/errors"
	"github.com/velonavasiliki/youtube-agent/internal/logging"
	"github.com/velonavasiliki/youtube-agent/internal/model"
	"github.com/velonavasiliki/youtube-agent/internal/youtube"
)

// Kind enumerates the built-in tool functions.
type Kind int

const (
	KindUnknown Kind = iota
	KindSearchVideos
	KindValidateDate
	KindGetTranscripts
)

// Tool names as exposed to the model.
const (
	NameSearchVideos   = "search_videos"
	NameValidateDate   = "validate_date"
	NameGetTranscripts = "get_transcripts"
)

// ParseKind maps a tool name to its Kind, reporting whether the name is known.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case NameSearchVideos:
		return KindSearchVideos, true
	case NameValidateDate:
		return KindValidateDate, true
	case NameGetTranscripts:
		return KindGetTranscripts, true
	default:
		return KindUnknown, false
	}
}

// maxSearchResults caps the per-search result count regardless of what the
// model asks for.
const maxSearchResults = 25

// Registry executes the built-in tools against the YouTube clients.
type Registry struct {
	searcher    youtube.Searcher
	transcripts youtube.TranscriptFetcher
	logger      *logging.Logger
	// now is injectable for tests of the default publish window.
	now func() time.Time
}

// NewRegistry builds the tool registry.
func NewRegistry(searcher youtube.Searcher, transcripts youtube.TranscriptFetcher, logger *logging.Logger) *Registry {
	return &Registry{
		searcher:    searcher,
		transcripts: transcripts,
		logger:      logger,
		now:         time.Now,
	}
}

// Definitions returns the tool schemas offered to the model.
func (r *Registry) Definitions() []agent.ToolDefinition {
	return []agent.ToolDefinition{
		{
			Name:        NameSearchVideos,
			Description: "Search YouTube and return formatted results as a string.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "free-text search term",
					},
					"order": map[string]interface{}{
						"type":        "string",
						"enum":        []interface{}{"date", "rating", "relevance", "viewCount"},
						"description": "sort order for results (default viewCount)",
					},
					"duration": map[string]interface{}{
						"type":        "string",
						"enum":        []interface{}{"any", "short", "medium", "long"},
						"description": "duration bucket: short (<4min), medium (4-20min), long (20min+)",
					},
					"num_results": map[string]interface{}{
						"type":        "integer",
						"description": "maximum number of videos to retrieve (default 1)",
					},
					"before": map[string]interface{}{
						"type":        "string",
						"description": "publish-date upper bound in mm/dd/yyyy form",
					},
					"after": map[string]interface{}{
						"type":        "string",
						"description": "publish-date lower bound in mm/dd/yyyy form",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        NameValidateDate,
			Description: "Validate that a date string is in mm/dd/yyyy form. If false, ask the user to restate the date.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"date": map[string]interface{}{
						"type":        "string",
						"description": "the date string to validate",
					},
				},
				"required": []string{"date"},
			},
		},
		{
			Name:        NameGetTranscripts,
			Description: "Fetch English transcripts for the given YouTube video IDs.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"video_ids": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "YouTube video IDs to fetch transcripts for",
					},
				},
				"required": []string{"video_ids"},
			},
		},
	}
}

// Dispatch executes one tool call. Errors returned here are turned into
// textual tool results by the session loop; they never abort a turn.
func (r *Registry) Dispatch(ctx context.Context, call agent.ToolCall) (string, error) {
	kind, ok := ParseKind(call.Name)
	if !ok {
		return "", errors.InvalidInput("unknown tool: " + call.Name)
	}

	switch kind {
	case KindSearchVideos:
		return r.searchVideos(ctx, call.Arguments)
	case KindValidateDate:
		return r.validateDate(call.Arguments)
	case KindGetTranscripts:
		return r.getTranscripts(ctx, call.Arguments)
	default:
		return "", errors.InvalidInput("unknown tool: " + call.Name)
	}
}

type searchArgs struct {
	Query      string `json:"query"`
	Order      string `json:"order"`
	Duration   string `json:"duration"`
	NumResults int64  `json:"num_results"`
	Before     string `json:"before"`
	After      string `json:"after"`
}

func (a *searchArgs) applyDefaults() {
	if a.Order == "" {
		a.Order = "viewCount"
	}
	if a.Duration == "" {
		a.Duration = "medium"
	}
	if a.NumResults <= 0 {
		a.NumResults = 1
	}
	if a.NumResults > maxSearchResults {
		a.NumResults = maxSearchResults
	}
}

func (a *searchArgs) validate() error {
	if strings.TrimSpace(a.Query) == "" {
		return errors.InvalidInput("query must not be empty")
	}
	switch a.Order {
	case "date", "rating", "relevance", "viewCount":
	default:
		return errors.InvalidInput("order must be one of date, rating, relevance, viewCount")
	}
	switch a.Duration {
	case "any", "short", "medium", "long":
	default:
		return errors.InvalidInput("duration must be one of any, short, medium, long")
	}
	return nil
}

func (r *Registry) searchVideos(ctx context.Context, rawArgs string) (string, error) {
	var args searchArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return "", errors.InvalidInput("malformed search_videos arguments: " + err.Error())
	}
	args.applyDefaults()
	if err := args.validate(); err != nil {
		return "", err
	}

	start, end, err := youtube.PublishWindow(args.Before, args.After, r.now())
	if err != nil {
		return "", err
	}
	// An inverted window cannot match anything; report it as an empty result
	// rather than an error so the model can phrase it for the user.
	if start.After(end) {
		return model.FormatVideos(args.Query, nil), nil
	}

	videos, err := r.searcher.Search(ctx, youtube.SearchRequest{
		Query:           args.Query,
		Order:           args.Order,
		Duration:        args.Duration,
		MaxResults:      args.NumResults,
		PublishedAfter:  start,
		PublishedBefore: end,
	})
	if err != nil {
		// API failures come back as text so the model can apologize
		// instead of the turn dying.
		r.logger.Warnf("search_videos failed: %v", err)
		return fmt.Sprintf("An error occurred while searching: %v", err), nil
	}

	return model.FormatVideos(args.Query, videos), nil
}

type validateDateArgs struct {
	Date string `json:"date"`
}

func (r *Registry) validateDate(rawArgs string) (string, error) {
	var args validateDateArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return "", errors.InvalidInput("malformed validate_date arguments: " + err.Error())
	}
	return strconv.FormatBool(youtube.ValidateDate(args.Date)), nil
}

type transcriptArgs struct {
	VideoIDs []string `json:"video_ids"`
}

func (r *Registry) getTranscripts(ctx context.Context, rawArgs string) (string, error) {
	var args transcriptArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return "", errors.InvalidInput("malformed get_transcripts arguments: " + err.Error())
	}
	if len(args.VideoIDs) == 0 {
		return "", errors.InvalidInput("video_ids must not be empty")
	}

	transcripts := r.transcripts.FetchTranscripts(ctx, args.VideoIDs)
	if len(transcripts) == 0 {
		return "No transcripts could be retrieved for the requested videos.", nil
	}

	ids := make([]string, 0, len(transcripts))
	for id := range transcripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "Video %s:\n%s\n\n", id, transcripts[id])
	}
	return strings.TrimSpace(b.String()), nil
}
