package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"steam-release-calendar/internal/release"
)

// maxWishlistPages bounds the wishlistdata walk; the store serves 100 apps a page.
const maxWishlistPages = 50

// wishlistPageIterator walks the paginated wishlistdata endpoint
type wishlistPageIterator struct {
	client      *Client
	steamID     string
	currentPage int
	entries     []release.WishlistEntry
	hasMore     bool
	err         error
}

func newWishlistPageIterator(c *Client, steamID string) *wishlistPageIterator {
	return &wishlistPageIterator{
		client:  c,
		steamID: steamID,
		hasMore: true,
	}
}

// Next returns the next entry and whether there was one
func (it *wishlistPageIterator) Next(ctx context.Context) (release.WishlistEntry, bool) {
	if len(it.entries) == 0 && it.hasMore {
		it.fetchNextPage(ctx)
	}
	if len(it.entries) == 0 {
		return release.WishlistEntry{}, false
	}
	e := it.entries[0]
	it.entries = it.entries[1:]
	return e, true
}

// Err returns the error that stopped the walk, if any.
func (it *wishlistPageIterator) Err() error {
	return it.err
}

// fetchNextPage retrieves the next page of wishlist entries
func (it *wishlistPageIterator) fetchNextPage(ctx context.Context) {
	if it.currentPage >= maxWishlistPages {
		it.hasMore = false
		return
	}

	c := it.client
	q := url.Values{
		"p": {strconv.Itoa(it.currentPage)},
		"v": {strconv.FormatInt(time.Now().Unix(), 10)},
	}
	r := c.storeRequest("wishlist data", "wishlist_data", "/wishlist/profiles/"+it.steamID+"/wishlistdata/", q)
	r.referer = c.wishlistPage(it.steamID)

	body, err := c.get(ctx, r)
	if err != nil {
		it.err = fmt.Errorf("wishlist data page %d: %w", it.currentPage, err)
		it.hasMore = false
		return
	}

	res := gjson.ParseBytes(body)
	switch {
	case !gjson.ValidBytes(body):
		it.err = fmt.Errorf("wishlist data page %d: %w: not json", it.currentPage, ErrUnexpectedShape)
	case res.IsObject() && res.Get("success").Exists() && len(res.Map()) == 1:
		// {"success":2} is what a private wishlist looks like here.
		it.err = fmt.Errorf("wishlist data: %w", ErrPrivate)
	case res.IsObject():
		it.entries = entriesFromJSON(res)
	case res.IsArray() && len(res.Array()) == 0:
		// End of the list.
	default:
		it.err = fmt.Errorf("wishlist data page %d: %w", it.currentPage, ErrUnexpectedShape)
	}

	if len(it.entries) == 0 {
		it.hasMore = false
		return
	}
	it.currentPage++
}
