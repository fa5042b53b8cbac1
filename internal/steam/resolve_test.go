package steam

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gabeID = "76561197960287930"

func mustSID(t *testing.T, s string) steamid.SteamID {
	t.Helper()
	sid, err := parseSteamID(s)
	require.NoError(t, err)
	return sid
}

func TestResolveSteamID_WithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	c := newTestClient(t, mux, testAPIKey)

	inputs := []string{
		gabeID,
		"  " + gabeID + "\n",
		"https://steamcommunity.com/profiles/" + gabeID,
		"https://steamcommunity.com/profiles/" + gabeID + "/?tab=all",
		"https://store.steampowered.com/wishlist/profiles/" + gabeID + "/#sort=order",
		"steamcommunity.com/profiles/" + gabeID,
		"https://steamcommunity.com/profiles/" + gabeID + "?l=english",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			sid, err := c.ResolveSteamID(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, gabeID, sid.String())
		})
	}
	assert.Zero(t, calls.Load())
}

func TestResolveSteamID_Invalid(t *testing.T) {
	c := newTestClient(t, http.NewServeMux(), "")

	inputs := []string{
		"",
		"   ",
		"https://example.com/users/me",
		"two words",
		"https://steamcommunity.com/profiles/" + gabeID + "1",
		"https://steamcommunity.com/profiles/" + gabeID + "abc/",
	}
	for _, in := range inputs {
		_, err := c.ResolveSteamID(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, in)
	}
}

func TestResolveSteamID_VanityViaAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ISteamUser/ResolveVanityURL/v1/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("vanityurl") {
		case "gabelogannewell":
			writeJSON(w, `{"response":{"steamid":"`+gabeID+`","success":1}}`)
		default:
			writeJSON(w, `{"response":{"success":42,"message":"No match"}}`)
		}
	})
	mux.HandleFunc("/id/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("community profile should not be used, got %s", r.URL.Path)
	})
	c := newTestClient(t, mux, testAPIKey)
	ctx := context.Background()

	sid, err := c.ResolveSteamID(ctx, "gabelogannewell")
	require.NoError(t, err)
	assert.Equal(t, gabeID, sid.String())

	sid, err = c.ResolveSteamID(ctx, "https://steamcommunity.com/id/gabelogannewell/")
	require.NoError(t, err)
	assert.Equal(t, gabeID, sid.String())

	_, err = c.ResolveSteamID(ctx, "nobody-has-this-name")
	assert.ErrorIs(t, err, ErrNotFound)
}

const profileXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<profile>
	<steamID64>` + gabeID + `</steamID64>
	<steamID><![CDATA[Rabscuttle]]></steamID>
</profile>`

func TestResolveSteamID_VanityViaProfileWithoutKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/id/gabelogannewell/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("xml"))
		_, _ = w.Write([]byte(profileXML))
	})
	mux.HandleFunc("/id/ghost/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><error><![CDATA[The specified profile could not be found.]]></error></response>`))
	})
	c := newTestClient(t, mux, "")
	ctx := context.Background()

	sid, err := c.ResolveSteamID(ctx, "https://store.steampowered.com/wishlist/id/gabelogannewell")
	require.NoError(t, err)
	assert.Equal(t, gabeID, sid.String())

	_, err = c.ResolveSteamID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveSteamID_VanityAPIFailureFallsBackToProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ISteamUser/ResolveVanityURL/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/id/gabelogannewell/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(profileXML))
	})
	c := newTestClient(t, mux, testAPIKey)

	sid, err := c.ResolveSteamID(context.Background(), "gabelogannewell")
	require.NoError(t, err)
	assert.Equal(t, gabeID, sid.String())
}
