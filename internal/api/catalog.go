package api

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"boardgame-shelf/internal/config"
	"boardgame-shelf/internal/constants"
	"boardgame-shelf/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const (
	// Sentinels for catalog items missing the attribute/element entirely.
	unknownGameID   = "unknown"
	unknownGameName = "Unknown Game"
)

// CatalogClient fetches a user's owned collection from the catalog API and
// maps it to domain records. The catalog queues collection exports
// asynchronously and answers 202 until the export is ready, so FetchCollection
// polls with a fixed delay up to a bounded number of attempts.
type CatalogClient struct {
	baseURL   string
	client    *fasthttp.Client
	pollDelay time.Duration
	maxPolls  int
	logger    zerolog.Logger
}

func NewCatalogClient(cfg *config.Config, logger zerolog.Logger) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(cfg.CatalogBaseURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		pollDelay: constants.CollectionPollDelay,
		maxPolls:  constants.MaxPollAttempts,
		logger:    logger,
	}
}

// FetchCollection retrieves the owned collection for username. It returns a
// *CollectionError on every terminal failure: poll budget exhausted, an
// upstream error message embedded in the document, or a transport failure.
// An empty collection is a valid result, not an error.
func (c *CatalogClient) FetchCollection(ctx context.Context, username string) ([]domain.GameRecord, error) {
	requestURL := fmt.Sprintf("%s/collection?username=%s&own=1", c.baseURL, url.QueryEscape(username))

	for attempt := 1; ; attempt++ {
		status, body, err := c.issueRequest(ctx, requestURL)
		if err != nil {
			return nil, &CollectionError{Reason: fmt.Sprintf("failed to fetch collection: %v", err)}
		}

		switch nextPollAction(status, attempt, c.maxPolls) {
		case pollParse:
			return parseCollection(body)
		case pollWait:
			c.logger.Debug().
				Str("username", username).
				Int("attempt", attempt).
				Dur("delay", c.pollDelay).
				Msg("collection export queued, polling again")
			select {
			case <-ctx.Done():
				return nil, &CollectionError{Reason: fmt.Sprintf("failed to fetch collection: %v", ctx.Err())}
			case <-time.After(c.pollDelay):
			}
		case pollFail:
			c.logger.Warn().
				Str("username", username).
				Int("attempts", attempt).
				Msg("collection export still not ready, giving up")
			return nil, &CollectionError{Reason: "collection not ready, retry later"}
		}
	}
}

func (c *CatalogClient) issueRequest(ctx context.Context, requestURL string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.ExternalAPITimeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, err
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return resp.StatusCode(), body, nil
}

type pollAction int

const (
	pollParse pollAction = iota
	pollWait
	pollFail
)

// nextPollAction decides what to do with a catalog response: anything other
// than 202 is parsed, a 202 within the attempt budget means wait and re-issue,
// a 202 on the final attempt exhausts the budget.
func nextPollAction(status, attempt, maxAttempts int) pollAction {
	if status != fasthttp.StatusAccepted {
		return pollParse
	}
	if attempt >= maxAttempts {
		return pollFail
	}
	return pollWait
}

type catalogDocument struct {
	Items   []catalogItem  `xml:"item"`
	Errors  []catalogError `xml:"error"`
	Message string         `xml:"message"`
}

type catalogError struct {
	Message string `xml:"message"`
}

type catalogItem struct {
	ObjectID string `xml:"objectid,attr"`
	Name     string `xml:"name"`
}

func parseCollection(body []byte) ([]domain.GameRecord, error) {
	var doc catalogDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &CollectionError{Reason: fmt.Sprintf("failed to parse collection document: %v", err)}
	}

	if msg := upstreamMessage(doc); msg != "" {
		return nil, &CollectionError{Reason: msg}
	}

	records := make([]domain.GameRecord, 0, len(doc.Items))
	for _, item := range doc.Items {
		records = append(records, mapItem(item))
	}
	return records, nil
}

func upstreamMessage(doc catalogDocument) string {
	for _, e := range doc.Errors {
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(doc.Message)
}

func mapItem(item catalogItem) domain.GameRecord {
	record := domain.GameRecord{
		ID:              strings.TrimSpace(item.ObjectID),
		Name:            strings.TrimSpace(item.Name),
		BestWith:        []int{},
		RecommendedWith: []int{},
	}
	if record.ID == "" {
		record.ID = unknownGameID
	}
	if record.Name == "" {
		record.Name = unknownGameName
	}
	return record
}
