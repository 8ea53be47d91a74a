package service

import (
	"context"
	"fmt"

	"boardgame-shelf/internal/api"
	"boardgame-shelf/internal/constants"
	"boardgame-shelf/internal/domain"
	"boardgame-shelf/internal/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// CatalogFetcher is the catalog side of a fetch cycle.
type CatalogFetcher interface {
	FetchCollection(ctx context.Context, username string) ([]domain.GameRecord, error)
}

// EnrichmentStreamer is the enrichment side of a fetch cycle.
type EnrichmentStreamer interface {
	StreamRecommendations(ctx context.Context, ids []string, onRecord func(domain.EnrichmentRecord)) error
}

// CollectionService runs fetch cycles and answers filtered reads. One cycle
// is: fetch the collection, seed the store, then stream enrichment patches
// into it. The two stages run sequentially; the store's cycle token keeps a
// superseded cycle from writing after a newer one has seeded.
type CollectionService struct {
	catalog CatalogFetcher
	enrich  EnrichmentStreamer
	store   *store.CollectionStore
	group   singleflight.Group
	logger  zerolog.Logger
}

func NewCollectionService(catalog *api.CatalogClient, enrich *api.EnrichmentClient, st *store.CollectionStore, logger zerolog.Logger) *CollectionService {
	return newCollectionService(catalog, enrich, st, logger)
}

func newCollectionService(catalog CatalogFetcher, enrich EnrichmentStreamer, st *store.CollectionStore, logger zerolog.Logger) *CollectionService {
	return &CollectionService{
		catalog: catalog,
		enrich:  enrich,
		store:   st,
		logger:  logger,
	}
}

// RefreshResult summarizes a completed fetch cycle.
type RefreshResult struct {
	Games int
	// Warning carries the enrichment failure message when the cycle ended
	// with a seeded but only partially enriched collection.
	Warning string
}

// Refresh runs one fetch cycle for username. Catalog failures return a
// *api.CollectionError and leave no partial collection behind (a newer seed
// has simply not happened). Enrichment failures are reported via
// RefreshResult.Warning: the seeded collection stays visible and every patch
// applied before the failure is kept. Concurrent refreshes for the same
// username are coalesced into a single cycle.
func (s *CollectionService) Refresh(ctx context.Context, username string) (RefreshResult, error) {
	if username == "" {
		return RefreshResult{}, fmt.Errorf("username is required")
	}

	result, err, _ := s.group.Do(username, func() (any, error) {
		return s.runCycle(ctx, username)
	})
	if err != nil {
		return RefreshResult{}, err
	}
	return result.(RefreshResult), nil
}

func (s *CollectionService) runCycle(ctx context.Context, username string) (RefreshResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	cycleID, _ := gonanoid.New()
	logger := s.logger.With().Str("cycle_id", cycleID).Str("username", username).Logger()

	cycle := s.store.BeginCycle()
	logger.Info().Msg("starting fetch cycle")

	records, err := s.catalog.FetchCollection(ctx, username)
	if err != nil {
		logger.Error().Err(err).Msg("collection fetch failed")
		return RefreshResult{}, err
	}

	if !s.store.Seed(cycle, records) {
		logger.Info().Msg("cycle superseded before seed, discarding result")
		return RefreshResult{}, nil
	}

	seeded := s.store.Snapshot()
	logger.Info().Int("games", len(seeded)).Msg("collection seeded")

	if len(seeded) == 0 {
		return RefreshResult{}, nil
	}

	ids := make([]string, 0, len(seeded))
	for _, r := range seeded {
		ids = append(ids, r.ID)
	}

	applied := 0
	err = s.enrich.StreamRecommendations(ctx, ids, func(record domain.EnrichmentRecord) {
		if s.store.ApplyPatch(cycle, record) {
			applied++
		}
	})
	if err != nil {
		logger.Warn().Err(err).Int("applied", applied).Msg("enrichment stream failed, keeping partial collection")
		return RefreshResult{Games: len(seeded), Warning: err.Error()}, nil
	}

	logger.Info().Int("games", len(seeded)).Int("applied", applied).Msg("fetch cycle completed")
	return RefreshResult{Games: len(seeded)}, nil
}

// Games returns the current snapshot filtered by the player-count range and
// mode. The range is validated against the supported player bounds.
func (s *CollectionService) Games(r domain.PlayerRange, mode domain.FilterMode) ([]domain.GameRecord, error) {
	if r.Min < constants.MinPlayers || r.Max > constants.MaxPlayers || r.Min > r.Max {
		return nil, fmt.Errorf("player range must satisfy %d <= min <= max <= %d", constants.MinPlayers, constants.MaxPlayers)
	}
	return domain.Select(s.store.Snapshot(), r, mode), nil
}
