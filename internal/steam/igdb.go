package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Henry-Sarabia/igdb/v2"
)

// DateEnricher supplies a release day when the store has none it can parse.
type DateEnricher interface {
	ReleaseDate(ctx context.Context, name string) (time.Time, error)
}

var twitchTokenURL = "https://id.twitch.tv/oauth2/token"

// IGDBEnricher looks release dates up on IGDB.
type IGDBEnricher struct {
	client *igdb.Client
}

// NewIGDBEnricher authenticates with Twitch and returns an enricher.
func NewIGDBEnricher(ctx context.Context, clientID, clientSecret string, hc *http.Client) (*IGDBEnricher, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("IGDB client id and secret are required")
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}

	token, err := getTwitchToken(ctx, hc, clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with Twitch: %w", err)
	}

	return &IGDBEnricher{client: igdb.NewClient(clientID, token, hc)}, nil
}

// ReleaseDate returns the first release date of the best IGDB match for name.
func (e *IGDBEnricher) ReleaseDate(ctx context.Context, name string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	games, err := e.client.Games.Search(
		name,
		igdb.SetFields("id", "name", "first_release_date"),
		igdb.SetLimit(5),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("igdb search %q: %w", name, err)
	}
	return pickIGDBDate(name, games)
}

// pickIGDBDate returns the date of the result whose name matches exactly,
// ignoring case and surrounding space. Near misses such as the prequel or a
// soundtrack are not used.
func pickIGDBDate(name string, games []*igdb.Game) (time.Time, error) {
	want := strings.TrimSpace(name)
	for _, g := range games {
		if g == nil || g.FirstReleaseDate == 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(g.Name), want) {
			return time.Unix(int64(g.FirstReleaseDate), 0).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("igdb %q: %w", name, ErrNotFound)
}

// getTwitchToken fetches an App Access Token from Twitch.
func getTwitchToken(ctx context.Context, hc *http.Client, clientID, clientSecret string) (string, error) {
	vals := url.Values{}
	vals.Set("client_id", clientID)
	vals.Set("client_secret", clientSecret)
	vals.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitchTokenURL, strings.NewReader(vals.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	return result.AccessToken, nil
}
