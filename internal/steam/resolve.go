package steam

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/tidwall/gjson"
)

var (
	profileURLRe = regexp.MustCompile(`(?i)(?:steamcommunity\.com|store\.steampowered\.com/wishlist)/profiles/(\d{17})(?:[/?#\s]|$)`)
	vanityURLRe  = regexp.MustCompile(`(?i)(?:steamcommunity\.com|store\.steampowered\.com/wishlist)/id/([^/?#\s]+)`)
	steamID64Re  = regexp.MustCompile(`^\d{17}$`)
	textualIDRe  = regexp.MustCompile(`^(?:STEAM_[0-5]:[01]:\d+|\[U:1:\d+\])$`)
	profileXMLRe = regexp.MustCompile(`<steamID64>\s*(\d{17})\s*</steamID64>`)
)

// Resolve vanity success codes of ISteamUser/ResolveVanityURL.
const (
	vanityMatch   = 1
	vanityNoMatch = 42
)

// ResolveSteamID turns a SteamID64, a textual SteamID, a vanity name or a
// profile/wishlist URL into a SteamID.
func (c *Client) ResolveSteamID(ctx context.Context, input string) (steamid.SteamID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return steamid.SteamID{}, ErrInvalidIdentifier
	}

	if m := profileURLRe.FindStringSubmatch(input); m != nil {
		return parseSteamID(m[1])
	}
	if m := vanityURLRe.FindStringSubmatch(input); m != nil {
		vanity, err := url.PathUnescape(m[1])
		if err != nil {
			vanity = m[1]
		}
		return c.resolveVanity(ctx, vanity)
	}
	if steamID64Re.MatchString(input) || textualIDRe.MatchString(input) {
		return parseSteamID(input)
	}
	if strings.ContainsAny(input, "/: ") {
		return steamid.SteamID{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, input)
	}
	return c.resolveVanity(ctx, input)
}

func parseSteamID(s string) (steamid.SteamID, error) {
	sid := steamid.New(s)
	if !sid.Valid() {
		return steamid.SteamID{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return sid, nil
}

// resolveVanity asks the Web API first; without a key, or when the API fails
// for a reason other than "no such name", the community profile XML is used.
func (c *Client) resolveVanity(ctx context.Context, vanity string) (steamid.SteamID, error) {
	if c.HasAPIKey() {
		sid, err := c.resolveVanityAPI(ctx, vanity)
		if err == nil || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return sid, err
		}
		c.log.Warn("vanity lookup via web api failed, trying community profile", "vanity", vanity, "err", err)
	}
	return c.resolveVanityProfile(ctx, vanity)
}

func (c *Client) resolveVanityAPI(ctx context.Context, vanity string) (steamid.SteamID, error) {
	q := url.Values{"vanityurl": {vanity}}
	body, err := c.get(ctx, c.apiRequest("resolve vanity url", "resolve_vanity", "/ISteamUser/ResolveVanityURL/v1/", q, true))
	if err != nil {
		return steamid.SteamID{}, err
	}

	resp := gjson.GetBytes(body, "response")
	if !resp.Exists() {
		return steamid.SteamID{}, fmt.Errorf("resolve vanity url: %w", ErrUnexpectedShape)
	}
	switch resp.Get("success").Int() {
	case vanityMatch:
		return parseSteamID(resp.Get("steamid").String())
	case vanityNoMatch:
		return steamid.SteamID{}, fmt.Errorf("vanity name %q: %w", vanity, ErrNotFound)
	default:
		return steamid.SteamID{}, fmt.Errorf("resolve vanity url: %w: %s", ErrUnexpectedShape, resp.Get("message").String())
	}
}

func (c *Client) resolveVanityProfile(ctx context.Context, vanity string) (steamid.SteamID, error) {
	r := request{
		op:       "community profile",
		endpoint: "community_profile",
		base:     c.opts.CommunityBase,
		path:     "/id/" + url.PathEscape(vanity) + "/",
		query:    url.Values{"xml": {"1"}},
		accept:   "text/xml",
	}
	body, err := c.get(ctx, r)
	if err != nil {
		return steamid.SteamID{}, err
	}
	m := profileXMLRe.FindSubmatch(body)
	if m == nil {
		return steamid.SteamID{}, fmt.Errorf("vanity name %q: %w", vanity, ErrNotFound)
	}
	return parseSteamID(string(m[1]))
}
