// Package release holds the records produced by game lookups and wishlist fetches.
package release

import (
	"fmt"
	"time"
)

const storeAppURL = "https://store.steampowered.com/app/%d"

// Info describes a single game and when it comes out.
type Info struct {
	Name             string
	AppID            int
	Date             Date
	ComingSoon       bool
	ShortDescription string
	HeaderImage      string
}

// StoreURL returns the storefront page of the game.
func (i Info) StoreURL() string {
	return StoreURL(i.AppID)
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%d, %s)", i.Name, i.AppID, i.Date)
}

// WishlistEntry is one title found on a wishlist. Name is empty when the source
// only exposed app ids.
type WishlistEntry struct {
	AppID    int
	Name     string
	Priority int
	AddedAt  time.Time
}

// StoreURL returns the storefront page for appID.
func StoreURL(appID int) string {
	return fmt.Sprintf(storeAppURL, appID)
}
