package steam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"steam-release-calendar/internal/metrics"
	"steam-release-calendar/internal/release"
	"steam-release-calendar/internal/tracing"
)

// Service combines the endpoint client, the wishlist chain and optional date
// enrichment into the operations the pipeline needs.
type Service struct {
	client   *Client
	chain    *Chain
	enricher DateEnricher
	log      *slog.Logger
}

// NewService builds a Service. A nil chain means DefaultStrategies; a nil
// enricher disables date enrichment.
func NewService(c *Client, chain *Chain, enricher DateEnricher) *Service {
	if chain == nil {
		chain = NewChain(c.log, DefaultStrategies(c)...)
	}
	return &Service{client: c, chain: chain, enricher: enricher, log: c.log}
}

// LookupRelease searches the store for name and returns its release record.
func (s *Service) LookupRelease(ctx context.Context, name string) (info release.Info, err error) {
	ctx, span := tracing.StartSpan(ctx, "lookup.by_name")
	defer func() { tracing.End(span, err) }()
	defer func() { recordLookup(err) }()

	match, err := s.client.SearchGame(ctx, name)
	if err != nil {
		return release.Info{}, err
	}
	d, err := s.client.AppDetails(ctx, match.AppID)
	if err != nil {
		return release.Info{}, err
	}
	return s.enrich(ctx, releaseInfo(d, name)), nil
}

// LookupReleaseByID fetches the release record of a known app.
func (s *Service) LookupReleaseByID(ctx context.Context, appID int, fallbackName string) (info release.Info, err error) {
	ctx, span := tracing.StartSpan(ctx, "lookup.by_id")
	defer func() { tracing.End(span, err) }()
	defer func() { recordLookup(err) }()

	d, err := s.client.AppDetails(ctx, appID)
	if err != nil {
		return release.Info{}, err
	}
	return s.enrich(ctx, releaseInfo(d, fallbackName)), nil
}

// enrich fills a missing or unparseable store date from the enricher. A date
// the store gives in a form we understand always wins.
func (s *Service) enrich(ctx context.Context, info release.Info) release.Info {
	if s.enricher == nil || info.Date.Known() {
		return info
	}
	t, err := s.enricher.ReleaseDate(ctx, info.Name)
	if err != nil {
		s.log.Debug("no enriched release date", "game", info.Name, "err", err)
		return info
	}
	s.log.Info("release date filled from igdb", "game", info.Name, "store_date", info.Date.Raw, "date", t.Format("2006-01-02"))
	info.Date = release.DayDate(t)
	return info
}

// FetchWishlist resolves identifier and runs the wishlist chain for it.
func (s *Service) FetchWishlist(ctx context.Context, identifier string) (*WishlistResult, error) {
	sid, err := s.client.ResolveSteamID(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", identifier, err)
	}
	s.log.Info("resolved steam id", "input", identifier, "steam_id", sid.String())
	return s.chain.Fetch(ctx, sid)
}

// FillNames looks up names for entries that have none. Entries whose lookup
// fails keep an empty name.
func (s *Service) FillNames(ctx context.Context, entries []release.WishlistEntry) []release.WishlistEntry {
	out := make([]release.WishlistEntry, len(entries))
	copy(out, entries)
	for i := range out {
		if out[i].Name != "" {
			continue
		}
		name, err := s.client.AppName(ctx, out[i].AppID)
		if err != nil {
			if ctx.Err() != nil {
				return out
			}
			s.log.Warn("could not look up app name", "app_id", out[i].AppID, "err", err)
			continue
		}
		out[i].Name = name
	}
	return out
}

// CheckAPIKey reports whether the configured Web API key is accepted.
func (s *Service) CheckAPIKey(ctx context.Context) error {
	return s.client.CheckAPIKey(ctx)
}

func recordLookup(err error) {
	switch {
	case err == nil:
		metrics.Lookups.WithLabelValues(metrics.OutcomeSuccess).Inc()
	case errors.Is(err, ErrNotFound):
		metrics.Lookups.WithLabelValues(metrics.OutcomeNotFound).Inc()
	default:
		metrics.Lookups.WithLabelValues(metrics.OutcomeError).Inc()
	}
}
