package steam

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/tidwall/gjson"

	"steam-release-calendar/internal/release"
)

var (
	wishlistDataRe = regexp.MustCompile(`(?m)g_rgWishlistData\s*=\s*(\[.*\])\s*;?\s*$`)
	appInfoRe      = regexp.MustCompile(`(?m)g_rgAppInfo\s*=\s*(\{.*\})\s*;?\s*$`)
	appLinkRe      = regexp.MustCompile(`/app/(\d+)(?:/([^/?#"]+))?`)
	rawAppIDRe     = regexp.MustCompile(`"appid"\s*:\s*"?(\d+)"?(?:[^{}\[\]]*?"name"\s*:\s*"((?:[^"\\]|\\.)*)")?`)
)

// htmlHeuristic extracts wishlist entries from the wishlist page. It returns
// no entries when the page does not look the way it expects.
type htmlHeuristic struct {
	name  string
	parse func(page []byte, doc *goquery.Document) []release.WishlistEntry
}

// Tried in order; the page has changed shape several times over the years and
// each of these matches one generation of it.
var htmlHeuristics = []htmlHeuristic{
	{"embedded_wishlist_data", parseEmbeddedWishlistData},
	{"wishlist_rows", parseWishlistRows},
	{"application_config", parseApplicationConfig},
	{"app_links", parseAppLinks},
	{"raw_appids", parseRawAppIDs},
}

// htmlStrategy scrapes the public wishlist page.
type htmlStrategy struct{ c *Client }

func (s *htmlStrategy) Name() string { return StrategyHTML }

func (s *htmlStrategy) Fetch(ctx context.Context, sid steamid.SteamID) ([]release.WishlistEntry, error) {
	r := request{
		op:       "wishlist page",
		endpoint: "wishlist_page",
		base:     s.c.opts.StoreBase,
		path:     "/wishlist/profiles/" + sid.String() + "/",
		accept:   "text/html",
	}
	page, err := s.c.get(ctx, r)
	if err != nil {
		return nil, err
	}

	entries, heuristic, err := parseWishlistHTML(page)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		s.c.log.Debug("parsed wishlist page", "heuristic", heuristic, "entries", len(entries))
	}
	return entries, nil
}

// parseWishlistHTML runs the heuristics in order and returns the first
// non-empty result with the name of the heuristic that produced it.
func parseWishlistHTML(page []byte) ([]release.WishlistEntry, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, "", fmt.Errorf("parse wishlist page: %w", err)
	}
	for _, h := range htmlHeuristics {
		if entries := h.parse(page, doc); len(entries) > 0 {
			return entries, h.name, nil
		}
	}
	return nil, "", nil
}

// parseEmbeddedWishlistData reads the g_rgWishlistData script variable and,
// when present, names from g_rgAppInfo.
func parseEmbeddedWishlistData(page []byte, _ *goquery.Document) []release.WishlistEntry {
	m := wishlistDataRe.FindSubmatch(page)
	if m == nil || !gjson.ValidBytes(m[1]) {
		return nil
	}
	entries := entriesFromJSON(gjson.ParseBytes(m[1]))

	if info := appInfoRe.FindSubmatch(page); info != nil && gjson.ValidBytes(info[1]) {
		names := gjson.ParseBytes(info[1])
		for i := range entries {
			if entries[i].Name == "" {
				entries[i].Name = names.Get(strconv.Itoa(entries[i].AppID) + ".name").String()
			}
		}
	}
	return entries
}

// parseWishlistRows reads rendered rows carrying data-app-id.
func parseWishlistRows(_ []byte, doc *goquery.Document) []release.WishlistEntry {
	var entries []release.WishlistEntry
	doc.Find("[data-app-id]").Each(func(i int, s *goquery.Selection) {
		id, err := strconv.Atoi(strings.TrimSpace(s.AttrOr("data-app-id", "")))
		if err != nil || id <= 0 {
			return
		}
		name := strings.TrimSpace(s.Find(".title").First().Text())
		if name == "" {
			name = strings.TrimSpace(s.AttrOr("data-app-name", ""))
		}
		entries = append(entries, release.WishlistEntry{AppID: id, Name: name, Priority: i + 1})
	})
	return entries
}

// parseApplicationConfig looks through the JSON blobs the React store keeps
// in data-* attributes of #application_config.
func parseApplicationConfig(_ []byte, doc *goquery.Document) []release.WishlistEntry {
	cfg := doc.Find("#application_config")
	if cfg.Length() == 0 {
		return nil
	}
	var entries []release.WishlistEntry
	for _, attr := range cfg.Nodes[0].Attr {
		if !strings.HasPrefix(attr.Key, "data-") || !gjson.Valid(attr.Val) {
			continue
		}
		entries = append(entries, entriesFromConfigBlob(gjson.Parse(attr.Val))...)
	}
	return entries
}

func entriesFromConfigBlob(blob gjson.Result) []release.WishlistEntry {
	candidates := []gjson.Result{blob}
	for _, path := range []string{"items", "wishlist", "rgWishlist"} {
		if v := blob.Get(path); v.Exists() {
			candidates = append(candidates, v)
		}
	}
	var entries []release.WishlistEntry
	for _, c := range candidates {
		if !c.IsArray() {
			continue
		}
		c.ForEach(func(_, v gjson.Result) bool {
			if v.Type == gjson.Number && v.Int() > 0 {
				entries = append(entries, release.WishlistEntry{AppID: int(v.Int())})
			}
			return true
		})
		entries = append(entries, entriesFromJSON(c)...)
	}
	return entries
}

// parseAppLinks collects store app links; the name is the link text, or the
// URL slug when the link wraps an image.
func parseAppLinks(_ []byte, doc *goquery.Document) []release.WishlistEntry {
	var entries []release.WishlistEntry
	doc.Find(`a[href*="/app/"]`).Each(func(_ int, s *goquery.Selection) {
		m := appLinkRe.FindStringSubmatch(s.AttrOr("href", ""))
		if m == nil {
			return
		}
		id, err := strconv.Atoi(m[1])
		if err != nil || id <= 0 {
			return
		}
		name := strings.TrimSpace(s.Text())
		if name == "" && m[2] != "" {
			name = strings.ReplaceAll(m[2], "_", " ")
		}
		entries = append(entries, release.WishlistEntry{AppID: id, Name: name})
	})
	return entries
}

// parseRawAppIDs is the last resort: any "appid": number in the page source,
// with a "name" if one follows inside the same object.
func parseRawAppIDs(page []byte, _ *goquery.Document) []release.WishlistEntry {
	var entries []release.WishlistEntry
	for _, m := range rawAppIDRe.FindAllSubmatch(page, -1) {
		id, err := strconv.Atoi(string(m[1]))
		if err != nil || id <= 0 {
			continue
		}
		var name string
		if len(m[2]) > 0 {
			name = gjson.Parse(`"` + string(m[2]) + `"`).String()
		}
		entries = append(entries, release.WishlistEntry{AppID: id, Name: name})
	}
	return entries
}
