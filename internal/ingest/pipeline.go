// SPDX-License-Identifier: AGPL-3.0-only

// Package ingest implements the document-ingestion pipeline: a URL is
// classified by content type, parsed to plain text, split into overlapping
// chunks, embedded, and persisted to the vector store.
package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/velonavasiliki/youtube-agent/internal/config"
	"github.com/velonavasiliki/youtube-agent/internal/errors"
	"github.com/velonavasiliki/youtube-agent/internal/logging"
	"github.com/velonavasiliki/youtube-agent/internal/store"
)

// embedBatchSize bounds how many chunks go into one embeddings request.
const embedBatchSize = 64

// VectorStore is the persistence half of the pipeline.
type VectorStore interface {
	AddChunks(ctx context.Context, source string, chunks []string, embeddings [][]float32) error
	Search(ctx context.Context, embedding []float32, k int) ([]store.SearchHit, error)
}

// Pipeline ingests documents into a vector store.
type Pipeline struct {
	httpClient   *http.Client
	embedder     Embedder
	store        VectorStore
	chunkSize    int
	chunkOverlap int
	logger       *logging.Logger
}

// NewPipeline builds a pipeline from the ingest configuration.
func NewPipeline(cfg config.IngestConfig, httpClient *http.Client, embedder Embedder, store VectorStore, logger *logging.Logger) *Pipeline {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Pipeline{
		httpClient:   httpClient,
		embedder:     embedder,
		store:        store,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       logger,
	}
}

// IngestURL downloads and parses the document at documentURL, splits it,
// embeds the chunks, and persists them. Unsupported content types fail before
// the body is fetched.
func (p *Pipeline) IngestURL(ctx context.Context, documentURL string) error {
	contentType, err := p.sniffContentType(ctx, documentURL)
	if err != nil {
		return err
	}
	p.logger.Infof("Content-Type detected: %s", contentType)

	var text string
	switch {
	case strings.Contains(contentType, "application/pdf"):
		text, err = p.fetchPDF(ctx, documentURL)
	case strings.Contains(contentType, "text/html"):
		text, err = p.fetchHTML(ctx, documentURL)
	default:
		return errors.InvalidInput(fmt.Sprintf("unsupported content type %q: only PDF and HTML are supported", contentType))
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.InvalidInput("document produced no text; the URL may be invalid or the content could not be parsed")
	}

	chunks := SplitText(text, p.chunkSize, p.chunkOverlap)
	p.logger.Infof("Document split into %d chunks", len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		embeddings, err := p.embedder.Embed(ctx, batch)
		if err != nil {
			return err
		}
		if err := p.store.AddChunks(ctx, documentURL, batch, embeddings); err != nil {
			return err
		}
	}

	p.logger.Infof("Ingested %s (%d chunks)", documentURL, len(chunks))
	return nil
}

// SearchDocuments embeds the query and returns the k nearest chunks from the
// vector store, closest first.
func (p *Pipeline) SearchDocuments(ctx context.Context, query string, k int) ([]store.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.InvalidInput("query must not be empty")
	}
	if k <= 0 {
		k = 4
	}

	embeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, errors.Internal(fmt.Errorf("query embedding returned %d vectors", len(embeddings)))
	}
	return p.store.Search(ctx, embeddings[0], k)
}

// sniffContentType issues a HEAD request and returns the media type.
func (p *Pipeline) sniffContentType(ctx context.Context, documentURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, documentURL, nil)
	if err != nil {
		return "", errors.InvalidInput("bad document URL: " + err.Error())
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errors.ExternalCall("document HEAD", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", errors.ExternalCall("document HEAD", fmt.Errorf("status %d", resp.StatusCode))
	}

	raw := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw)), nil
	}
	return mediaType, nil
}

func (p *Pipeline) fetchBody(ctx context.Context, documentURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, nil)
	if err != nil {
		return nil, errors.InvalidInput("bad document URL: " + err.Error())
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.ExternalCall("document fetch", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, errors.ExternalCall("document fetch", fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp.Body, nil
}

// fetchPDF downloads the PDF to a temporary file and extracts its text. The
// PDF reader needs random access, hence the temp file.
func (p *Pipeline) fetchPDF(ctx context.Context, documentURL string) (string, error) {
	body, err := p.fetchBody(ctx, documentURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "ingest-*.pdf")
	if err != nil {
		return "", errors.Internal(err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return "", errors.ExternalCall("document fetch", err)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Internal(err)
	}

	text, err := extractPDFText(tmp.Name())
	if err != nil {
		return "", errors.Internal(err)
	}
	return text, nil
}

func (p *Pipeline) fetchHTML(ctx context.Context, documentURL string) (string, error) {
	body, err := p.fetchBody(ctx, documentURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	text, err := extractHTMLText(body)
	if err != nil {
		return "", errors.Internal(err)
	}
	return text, nil
}
