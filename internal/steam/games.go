package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"steam-release-calendar/internal/release"
)

// SearchResult is the first match of a store search.
type SearchResult struct {
	AppID int
	Name  string
}

// AppDetails is the part of the appdetails payload we care about.
type AppDetails struct {
	AppID            int
	Name             string
	ShortDescription string
	HeaderImage      string
	ComingSoon       bool
	ReleaseDate      string
}

// SearchGame returns the most relevant store match for name.
func (c *Client) SearchGame(ctx context.Context, name string) (SearchResult, error) {
	q := url.Values{
		"term": {name},
		"l":    {c.opts.Language},
		"cc":   {c.opts.Country},
	}
	body, err := c.get(ctx, c.storeRequest("store search", "store_search", "/api/storesearch", q))
	if err != nil {
		return SearchResult{}, err
	}

	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return SearchResult{}, &RequestError{Op: "store search", Err: ErrUnexpectedShape}
	}
	items := res.Get("items").Array()
	if res.Get("total").Int() == 0 || len(items) == 0 {
		return SearchResult{}, fmt.Errorf("no results for %q: %w", name, ErrNotFound)
	}
	first := items[0]
	id := int(first.Get("id").Int())
	if id <= 0 {
		return SearchResult{}, fmt.Errorf("no app id for %q: %w", name, ErrNotFound)
	}
	return SearchResult{AppID: id, Name: first.Get("name").String()}, nil
}

// AppDetails fetches store details for appID.
func (c *Client) AppDetails(ctx context.Context, appID int) (AppDetails, error) {
	return c.appDetails(ctx, appID, url.Values{})
}

// AppName fetches only the basic details of appID, which is enough for a name.
func (c *Client) AppName(ctx context.Context, appID int) (string, error) {
	d, err := c.appDetails(ctx, appID, url.Values{"filters": {"basic"}})
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

func (c *Client) appDetails(ctx context.Context, appID int, q url.Values) (AppDetails, error) {
	id := strconv.Itoa(appID)
	q.Set("appids", id)
	q.Set("cc", c.opts.Country)
	q.Set("l", c.opts.Language)
	body, err := c.get(ctx, c.storeRequest("app details", "app_details", "/api/appdetails", q))
	if err != nil {
		return AppDetails{}, err
	}

	// The store answers with the body "null" for ids it has never heard of.
	entry := gjson.GetBytes(body, id)
	if !entry.Exists() || !entry.Get("success").Bool() {
		return AppDetails{}, fmt.Errorf("app %d: %w", appID, ErrNotFound)
	}
	data := entry.Get("data")
	if !data.IsObject() {
		return AppDetails{}, fmt.Errorf("app %d: %w", appID, ErrUnexpectedShape)
	}
	return AppDetails{
		AppID:            appID,
		Name:             data.Get("name").String(),
		ShortDescription: data.Get("short_description").String(),
		HeaderImage:      data.Get("header_image").String(),
		ComingSoon:       data.Get("release_date.coming_soon").Bool(),
		ReleaseDate:      data.Get("release_date.date").String(),
	}, nil
}

// CheckAPIKey probes GetPlayerSummaries with a known public profile.
func (c *Client) CheckAPIKey(ctx context.Context) error {
	if !c.HasAPIKey() {
		return ErrAPIKeyRequired
	}
	q := url.Values{"steamids": {"76561197960287930"}}
	body, err := c.get(ctx, c.apiRequest("check api key", "player_summaries", "/ISteamUser/GetPlayerSummaries/v2/", q, true))
	if err != nil {
		return err
	}
	if !gjson.GetBytes(body, "response.players").IsArray() {
		return &RequestError{Op: "check api key", Err: ErrUnexpectedShape}
	}
	return nil
}

// releaseInfo builds a release record from store details. fallbackName is
// used when the store has no name.
func releaseInfo(d AppDetails, fallbackName string) release.Info {
	name := d.Name
	if name == "" {
		name = fallbackName
	}
	return release.Info{
		Name:             name,
		AppID:            d.AppID,
		Date:             release.ParseDate(d.ReleaseDate),
		ComingSoon:       d.ComingSoon,
		ShortDescription: d.ShortDescription,
		HeaderImage:      d.HeaderImage,
	}
}
