package steam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/tidwall/gjson"

	"steam-release-calendar/internal/metrics"
	"steam-release-calendar/internal/release"
	"steam-release-calendar/internal/tracing"
)

// Strategy names, in the order the default chain tries them.
const (
	StrategyOfficial   = "official"
	StrategyCommunity  = "community"
	StrategyStoreAJAX  = "store_ajax"
	StrategyHTML       = "html"
	StrategyOwnedGames = "owned_games"
)

// Strategy is one way of getting a wishlist out of Steam.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, sid steamid.SteamID) ([]release.WishlistEntry, error)
}

// fallbackStrategy marks strategies whose result is not really the wishlist.
type fallbackStrategy interface {
	Fallback() bool
}

// StrategyFailure records why a strategy did not produce a wishlist.
type StrategyFailure struct {
	Strategy string
	Err      error
}

// WishlistResult is the output of the first strategy that found entries.
type WishlistResult struct {
	SteamID  steamid.SteamID
	Entries  []release.WishlistEntry
	Strategy string
	// Fallback is set when the entries came from a source other than the
	// wishlist itself (owned games).
	Fallback bool
	Failures []StrategyFailure
}

// Chain tries strategies in order until one returns entries.
type Chain struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewChain builds a chain over strategies, tried in the given order.
func NewChain(log *slog.Logger, strategies ...Strategy) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{strategies: strategies, log: log}
}

// DefaultStrategies returns the standard order: official API, community
// wishlist data, store AJAX, HTML scraping, owned games.
func DefaultStrategies(c *Client) []Strategy {
	return []Strategy{
		&officialStrategy{c},
		&communityStrategy{c},
		&storeAJAXStrategy{c},
		&htmlStrategy{c},
		&ownedGamesStrategy{c},
	}
}

// Fetch runs the chain. When every strategy fails the returned error wraps
// ErrAllStrategiesFailed and each strategy's error.
func (ch *Chain) Fetch(ctx context.Context, sid steamid.SteamID) (*WishlistResult, error) {
	result := &WishlistResult{SteamID: sid}
	errs := []error{ErrAllStrategiesFailed}

	for _, s := range ch.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := ch.log.With("strategy", s.Name(), "steam_id", sid.String())
		log.Info("fetching wishlist")

		entries, err := ch.run(ctx, s, sid)
		if err == nil && len(entries) == 0 {
			err = fmt.Errorf("%w: no entries", ErrNotFound)
			metrics.WishlistStrategies.WithLabelValues(s.Name(), metrics.OutcomeEmpty).Inc()
		} else if err != nil {
			metrics.WishlistStrategies.WithLabelValues(s.Name(), outcomeOf(err)).Inc()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("wishlist strategy failed", "err", err)
			result.Failures = append(result.Failures, StrategyFailure{Strategy: s.Name(), Err: err})
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		metrics.WishlistStrategies.WithLabelValues(s.Name(), metrics.OutcomeSuccess).Inc()
		result.Entries = normalizeEntries(entries)
		result.Strategy = s.Name()
		if fb, ok := s.(fallbackStrategy); ok {
			result.Fallback = fb.Fallback()
		}
		log.Info("wishlist fetched", "entries", len(result.Entries), "fallback", result.Fallback)
		return result, nil
	}

	return result, errors.Join(errs...)
}

func (ch *Chain) run(ctx context.Context, s Strategy, sid steamid.SteamID) (entries []release.WishlistEntry, err error) {
	ctx, span := tracing.StartSpan(ctx, "wishlist."+s.Name())
	defer func() { tracing.End(span, err) }()
	return s.Fetch(ctx, sid)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return metrics.OutcomeRateLimited
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

// normalizeEntries drops duplicate app ids, keeping the first occurrence but
// taking a name from a later one if the first had none, then sorts by name.
func normalizeEntries(entries []release.WishlistEntry) []release.WishlistEntry {
	index := make(map[int]int, len(entries))
	out := make([]release.WishlistEntry, 0, len(entries))
	for _, e := range entries {
		if e.AppID <= 0 {
			continue
		}
		e.Name = strings.TrimSpace(e.Name)
		if i, ok := index[e.AppID]; ok {
			if out[i].Name == "" {
				out[i].Name = e.Name
			}
			continue
		}
		index[e.AppID] = len(out)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].AppID < out[j].AppID
	})
	return out
}

// entriesFromJSON reads the two shapes the store uses for wishlists: a list
// of objects with an app id, or an object keyed by app id.
func entriesFromJSON(r gjson.Result) []release.WishlistEntry {
	var entries []release.WishlistEntry
	switch {
	case r.IsArray():
		r.ForEach(func(_, v gjson.Result) bool {
			if !v.IsObject() {
				return true
			}
			id := firstInt(v, "appid", "app_id", "id")
			if id > 0 {
				entries = append(entries, entryFrom(int(id), v))
			}
			return true
		})
	case r.IsObject():
		r.ForEach(func(k, v gjson.Result) bool {
			id, err := strconv.Atoi(k.String())
			if err != nil || id <= 0 {
				return true
			}
			entries = append(entries, entryFrom(id, v))
			return true
		})
	}
	return entries
}

func entryFrom(id int, v gjson.Result) release.WishlistEntry {
	e := release.WishlistEntry{
		AppID:    id,
		Name:     v.Get("name").String(),
		Priority: int(v.Get("priority").Int()),
	}
	if added := firstInt(v, "added", "date_added"); added > 0 {
		e.AddedAt = time.Unix(added, 0).UTC()
	}
	return e
}

func firstInt(v gjson.Result, keys ...string) int64 {
	for _, k := range keys {
		if f := v.Get(k); f.Exists() {
			return f.Int()
		}
	}
	return 0
}

// officialStrategy uses IWishlistService/GetWishlist. It returns ids only.
type officialStrategy struct{ c *Client }

func (s *officialStrategy) Name() string { return StrategyOfficial }

func (s *officialStrategy) Fetch(ctx context.Context, sid steamid.SteamID) ([]release.WishlistEntry, error) {
	q := url.Values{"steamid": {sid.String()}}
	body, err := s.c.get(ctx, s.c.apiRequest("get wishlist", "get_wishlist", "/IWishlistService/GetWishlist/v1/", q, s.c.HasAPIKey()))
	if err != nil {
		return nil, err
	}
	resp := gjson.GetBytes(body, "response")
	if !resp.IsObject() {
		return nil, fmt.Errorf("get wishlist: %w", ErrUnexpectedShape)
	}
	items := resp.Get("items")
	if !items.Exists() {
		// An empty or hidden wishlist comes back as an empty response object.
		return nil, nil
	}
	return entriesFromJSON(items), nil
}

// communityStrategy checks the profile, then pages through wishlistdata.
type communityStrategy struct{ c *Client }

func (s *communityStrategy) Name() string { return StrategyCommunity }

func (s *communityStrategy) Fetch(ctx context.Context, sid steamid.SteamID) ([]release.WishlistEntry, error) {
	if s.c.HasAPIKey() {
		if err := s.c.checkProfilePublic(ctx, sid.String()); err != nil {
			return nil, err
		}
	}
	s.c.primeStoreCookies(ctx, sid.String())

	it := newWishlistPageIterator(s.c, sid.String())
	var entries []release.WishlistEntry
	for {
		e, ok := it.Next(ctx)
		if !ok {
			break
		}
		entries = append(entries, e)
	}
	// A walk that stopped early is not the whole wishlist; let a later
	// strategy try instead of returning a truncated list.
	if err := it.Err(); err != nil {
		if len(entries) > 0 {
			s.c.log.Warn("wishlist data walk stopped early", "entries_so_far", len(entries), "err", err)
		}
		return nil, err
	}
	return entries, nil
}

// Community visibility states from GetPlayerSummaries.
const visibilityPublic = 3

// checkProfilePublic fails with ErrNotFound for unknown ids and ErrPrivate for
// profiles whose details are hidden.
func (c *Client) checkProfilePublic(ctx context.Context, steamID string) error {
	q := url.Values{"steamids": {steamID}}
	body, err := c.get(ctx, c.apiRequest("player summaries", "player_summaries", "/ISteamUser/GetPlayerSummaries/v2/", q, true))
	if err != nil {
		return err
	}
	players := gjson.GetBytes(body, "response.players")
	if !players.IsArray() {
		return fmt.Errorf("player summaries: %w", ErrUnexpectedShape)
	}
	if len(players.Array()) == 0 {
		return fmt.Errorf("steam id %s: %w", steamID, ErrNotFound)
	}
	if players.Get("0.communityvisibilitystate").Int() != visibilityPublic {
		return fmt.Errorf("steam id %s: %w", steamID, ErrPrivate)
	}
	return nil
}

// primeStoreCookies visits the wishlist page so the store hands out the
// session cookies its AJAX endpoints look for. Failures are not fatal.
func (c *Client) primeStoreCookies(ctx context.Context, steamID string) {
	r := request{
		op:       "wishlist page",
		endpoint: "wishlist_page",
		base:     c.opts.StoreBase,
		path:     "/wishlist/profiles/" + steamID + "/",
		accept:   "text/html",
	}
	if _, err := c.get(ctx, r); err != nil {
		c.log.Debug("could not prime store cookies", "err", err)
	}
}

// storeAJAXStrategy uses the store's getappwishlist endpoint.
type storeAJAXStrategy struct{ c *Client }

func (s *storeAJAXStrategy) Name() string { return StrategyStoreAJAX }

func (s *storeAJAXStrategy) Fetch(ctx context.Context, sid steamid.SteamID) ([]release.WishlistEntry, error) {
	q := url.Values{
		"steamid": {sid.String()},
		"time":    {strconv.FormatInt(time.Now().Unix(), 10)},
	}
	r := s.c.storeRequest("store wishlist", "store_wishlist", "/api/wishlist/getappwishlist", q)
	r.referer = s.c.wishlistPage(sid.String())
	body, err := s.c.get(ctx, r)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("store wishlist: %w: not json", ErrUnexpectedShape)
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() && !res.IsObject() {
		return nil, fmt.Errorf("store wishlist: %w", ErrUnexpectedShape)
	}
	return entriesFromJSON(res), nil
}

// ownedGamesStrategy lists owned games. It is the last resort and its result
// is flagged as a fallback.
type ownedGamesStrategy struct{ c *Client }

func (s *ownedGamesStrategy) Name() string   { return StrategyOwnedGames }
func (s *ownedGamesStrategy) Fallback() bool { return true }

func (s *ownedGamesStrategy) Fetch(ctx context.Context, sid steamid.SteamID) ([]release.WishlistEntry, error) {
	if !s.c.HasAPIKey() {
		return nil, ErrAPIKeyRequired
	}
	q := url.Values{
		"steamid":                   {sid.String()},
		"include_appinfo":           {"1"},
		"include_played_free_games": {"1"},
	}
	body, err := s.c.get(ctx, s.c.apiRequest("owned games", "owned_games", "/IPlayerService/GetOwnedGames/v1/", q, true))
	if err != nil {
		return nil, err
	}
	resp := gjson.GetBytes(body, "response")
	if !resp.IsObject() {
		return nil, fmt.Errorf("owned games: %w", ErrUnexpectedShape)
	}
	return entriesFromJSON(resp.Get("games")), nil
}
