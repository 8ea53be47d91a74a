package api

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"boardgame-shelf/internal/config"
	"boardgame-shelf/internal/constants"
	"boardgame-shelf/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// EnrichmentClient streams player-count recommendations for a set of game
// IDs. The enrichment service computes results per ID and emits them
// incrementally as newline-delimited JSON, so the response body is consumed
// as an open stream instead of being buffered whole.
type EnrichmentClient struct {
	baseURL string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewEnrichmentClient(cfg *config.Config, logger zerolog.Logger) *EnrichmentClient {
	return &EnrichmentClient{
		baseURL: strings.TrimRight(cfg.EnrichmentBaseURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			StreamResponseBody:  true,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

type enrichmentRequest struct {
	IDs []string `json:"ids"`
}

// StreamRecommendations posts the ID list and dispatches every decoded
// record through onRecord as it arrives. Transport and protocol failures
// return a *StreamError; records dispatched before the failure stay
// dispatched. Malformed lines are skipped, not fatal.
func (c *EnrichmentClient) StreamRecommendations(ctx context.Context, ids []string, onRecord func(domain.EnrichmentRecord)) error {
	payload, err := json.Marshal(enrichmentRequest{IDs: ids})
	if err != nil {
		return &StreamError{Message: "failed to fetch enrichment data", Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/recommendations")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.StreamReadTimeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return &StreamError{Message: "failed to fetch enrichment data", Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		c.logger.Warn().Int("status", resp.StatusCode()).Msg("enrichment request rejected")
		return &StreamError{Message: "failed to fetch enrichment data"}
	}

	stream := resp.BodyStream()
	if stream == nil {
		return &StreamError{Message: "failed to fetch enrichment data"}
	}

	return c.consume(ctx, stream, onRecord)
}

func (c *EnrichmentClient) consume(ctx context.Context, stream io.Reader, onRecord func(domain.EnrichmentRecord)) error {
	var buffer lineBuffer
	chunk := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return &StreamError{Message: "failed to fetch enrichment data", Err: err}
		}

		n, err := stream.Read(chunk)
		if n > 0 {
			for _, line := range buffer.feed(chunk[:n]) {
				c.dispatch(line, onRecord)
			}
		}
		if err == io.EOF {
			if line, ok := buffer.flush(); ok {
				c.dispatch(line, onRecord)
			}
			return nil
		}
		if err != nil {
			return &StreamError{Message: "failed to fetch enrichment data", Err: err}
		}
	}
}

func (c *EnrichmentClient) dispatch(line string, onRecord func(domain.EnrichmentRecord)) {
	if strings.TrimSpace(line) == "" {
		return
	}

	var record domain.EnrichmentRecord
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		c.logger.Warn().Err(err).Msg("skipping malformed enrichment record")
		return
	}
	onRecord(record)
}
