// SPDX-License-Identifier: AGPL-3.0-only
package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/velonavasiliki/youtube-agent/internal/errors"
	"github.com/velonavasiliki/youtube-agent/internal/logging"
)

// TranscriptFetcher is the transcript capability the tool registry depends on.
type TranscriptFetcher interface {
	FetchTranscripts(ctx context.Context, videoIDs []string) map[string]string
}

// Transcripts fetches caption tracks by scraping the watch page for the
// timedtext track list, the same way transcript client libraries do. There is
// no official Data API endpoint for transcripts.
type Transcripts struct {
	httpClient *http.Client
	language   string
	// pause is the mandatory wait between per-video fetches; the timedtext
	// endpoint rate-limits aggressively.
	pause  time.Duration
	logger *logging.Logger
}

// NewTranscripts builds a transcript fetcher for the given caption language.
func NewTranscripts(httpClient *http.Client, language string, pause time.Duration, logger *logging.Logger) *Transcripts {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transcripts{
		httpClient: httpClient,
		language:   language,
		pause:      pause,
		logger:     logger,
	}
}

// FetchTranscripts retrieves transcripts for each video id in order, pausing
// between fetches. Per-id failures are logged and skipped; the returned map
// holds only the ids that produced a transcript.
func (t *Transcripts) FetchTranscripts(ctx context.Context, videoIDs []string) map[string]string {
	out := make(map[string]string, len(videoIDs))
	for i, id := range videoIDs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(t.pause):
			}
		}
		transcript, err := t.fetchOne(ctx, id)
		if err != nil {
			t.logger.Warnf("Failed to fetch transcript for video %s: %v", id, err)
			continue
		}
		out[id] = transcript
	}
	return out
}

func (t *Transcripts) fetchOne(ctx context.Context, videoID string) (string, error) {
	page, err := t.get(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return "", errors.ExternalCall("youtube watch page", err)
	}

	tracks, err := extractCaptionTracks(page)
	if err != nil {
		return "", err
	}
	track, ok := pickTrack(tracks, t.language)
	if !ok {
		return "", errors.NotFound("transcript in language "+t.language, videoID)
	}

	raw, err := t.get(ctx, track.BaseURL)
	if err != nil {
		return "", errors.ExternalCall("timedtext", err)
	}
	snippets, err := parseTimedText(raw)
	if err != nil {
		return "", err
	}
	return "TRANSCRIPT: " + strings.Join(snippets, " "), nil
}

func (t *Transcripts) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// captionTrack is one entry from the watch page's timedtext track list.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// extractCaptionTracks locates the embedded captionTracks JSON array in the
// watch page markup and decodes just that array.
func extractCaptionTracks(page []byte) ([]captionTrack, error) {
	const marker = `"captionTracks":`
	i := strings.Index(string(page), marker)
	if i < 0 {
		return nil, errors.InvalidInput("video has no caption tracks")
	}
	dec := json.NewDecoder(strings.NewReader(string(page[i+len(marker):])))
	var tracks []captionTrack
	if err := dec.Decode(&tracks); err != nil {
		return nil, errors.Internal(fmt.Errorf("decode caption tracks: %w", err))
	}
	return tracks, nil
}

// pickTrack prefers a manually created track over an auto-generated ("asr")
// one for the requested language.
func pickTrack(tracks []captionTrack, language string) (captionTrack, bool) {
	var asr captionTrack
	var haveASR bool
	for _, tr := range tracks {
		if tr.LanguageCode != language {
			continue
		}
		if tr.Kind == "asr" {
			asr, haveASR = tr, true
			continue
		}
		return tr, true
	}
	return asr, haveASR
}

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// parseTimedText extracts the ordered snippet texts from a timedtext XML
// document. Snippet text arrives double-escaped.
func parseTimedText(raw []byte) ([]string, error) {
	var doc timedText
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Internal(fmt.Errorf("parse timedtext: %w", err))
	}
	snippets := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		s := strings.TrimSpace(html.UnescapeString(t.Value))
		if s != "" {
			snippets = append(snippets, s)
		}
	}
	return snippets, nil
}
