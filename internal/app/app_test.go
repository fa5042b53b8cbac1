package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"steam-release-calendar/internal/calendar"
	"steam-release-calendar/internal/release"
	"steam-release-calendar/internal/steam"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) LookupRelease(ctx context.Context, name string) (release.Info, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(release.Info), args.Error(1)
}

func (m *mockLookup) LookupReleaseByID(ctx context.Context, appID int, fallbackName string) (release.Info, error) {
	args := m.Called(ctx, appID, fallbackName)
	return args.Get(0).(release.Info), args.Error(1)
}

type mockWishlist struct {
	mock.Mock
}

func (m *mockWishlist) FetchWishlist(ctx context.Context, identifier string) (*steam.WishlistResult, error) {
	args := m.Called(ctx, identifier)
	res, _ := args.Get(0).(*steam.WishlistResult)
	return res, args.Error(1)
}

func (m *mockWishlist) FillNames(ctx context.Context, entries []release.WishlistEntry) []release.WishlistEntry {
	args := m.Called(ctx, entries)
	return args.Get(0).([]release.WishlistEntry)
}

func newRunner(t *testing.T, lookup ReleaseLookup, wishlist WishlistSource) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(lookup, wishlist, calendar.NewWriter(dir, log), Options{Quiet: true, Logger: log}), dir
}

func info(name string, appID int, date string) release.Info {
	return release.Info{Name: name, AppID: appID, Date: release.ParseDate(date), ShortDescription: name + " description"}
}

func TestRun_Names(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("LookupRelease", mock.Anything, "silksong").Return(info("Hollow Knight: Silksong", 1030300, "4 Sep, 2025"), nil)
	lookup.On("LookupRelease", mock.Anything, "tba game").Return(info("TBA Game", 5, "To be announced"), nil)
	lookup.On("LookupRelease", mock.Anything, "missing").Return(release.Info{}, steam.ErrNotFound)

	r, dir := newRunner(t, lookup, nil)
	sum, err := r.Run(context.Background(), Request{Names: []string{"silksong", "missing", "tba game"}})
	require.NoError(t, err)
	lookup.AssertExpectations(t)

	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 2, sum.Found)
	assert.Equal(t, 1, sum.EventsWritten)
	assert.Equal(t, []string{"missing"}, sum.Skipped)
	assert.Equal(t, []string{filepath.Join(dir, "Hollow_Knight__Silksong_release.ics")}, sum.EventFiles)
	assert.Equal(t, filepath.Join(dir, calendar.CombinedFilename), sum.CombinedFile)
	assert.Equal(t, filepath.Join(dir, calendar.IndexFilename), sum.IndexFile)

	page, err := os.ReadFile(sum.IndexFile)
	require.NoError(t, err)
	assert.Contains(t, string(page), "TBA Game")
	assert.Contains(t, string(page), "Hollow Knight: Silksong")
}

func TestRun_NoDatesStillWritesIndex(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("LookupRelease", mock.Anything, "tba").Return(info("TBA", 5, "Coming soon"), nil)

	r, dir := newRunner(t, lookup, nil)
	sum, err := r.Run(context.Background(), Request{Names: []string{"tba"}})
	require.NoError(t, err)

	assert.Empty(t, sum.CombinedFile)
	assert.NoFileExists(t, filepath.Join(dir, calendar.CombinedFilename))
	assert.FileExists(t, sum.IndexFile)
}

func TestRun_NothingFound(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("LookupRelease", mock.Anything, mock.Anything).Return(release.Info{}, steam.ErrNotFound)

	r, dir := newRunner(t, lookup, nil)
	sum, err := r.Run(context.Background(), Request{Names: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrNothingFound)
	assert.Equal(t, 2, sum.Processed)
	assert.NoFileExists(t, filepath.Join(dir, calendar.IndexFilename))
}

func TestRun_NoGames(t *testing.T) {
	r, _ := newRunner(t, &mockLookup{}, nil)
	_, err := r.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoGames)

	_, err = r.Run(context.Background(), Request{Names: []string{"x"}, Wishlist: "y"})
	assert.ErrorIs(t, err, ErrConflictingSrc)
}

func TestRun_CanceledStopsLookups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lookup := &mockLookup{}
	lookup.On("LookupRelease", mock.Anything, "first").
		Run(func(mock.Arguments) { cancel() }).
		Return(release.Info{}, context.Canceled)

	r, _ := newRunner(t, lookup, nil)
	sum, err := r.Run(ctx, Request{Names: []string{"first", "second"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Processed)
	lookup.AssertNotCalled(t, "LookupRelease", mock.Anything, "second")
}

func TestRun_Wishlist(t *testing.T) {
	fetched := []release.WishlistEntry{{AppID: 620}, {AppID: 400, Name: "Portal"}}
	named := []release.WishlistEntry{{AppID: 620, Name: "Portal 2"}, {AppID: 400, Name: "Portal"}}

	wl := &mockWishlist{}
	wl.On("FetchWishlist", mock.Anything, "gaben").Return(&steam.WishlistResult{
		Entries:  fetched,
		Strategy: steam.StrategyStoreAJAX,
		Failures: []steam.StrategyFailure{{Strategy: steam.StrategyOfficial, Err: steam.ErrNotFound}},
	}, nil)
	wl.On("FillNames", mock.Anything, fetched).Return(named)

	lookup := &mockLookup{}
	lookup.On("LookupReleaseByID", mock.Anything, 620, "Portal 2").Return(info("Portal 2", 620, "18 Apr, 2011"), nil)
	lookup.On("LookupReleaseByID", mock.Anything, 400, "Portal").Return(info("Portal", 400, "10 Oct, 2007"), nil)

	r, dir := newRunner(t, lookup, wl)
	saveTo := filepath.Join(dir, "lists", "wishlist.txt")
	sum, err := r.Run(context.Background(), Request{Wishlist: "gaben", SaveWishlist: saveTo})
	require.NoError(t, err)
	wl.AssertExpectations(t)
	lookup.AssertExpectations(t)

	assert.Equal(t, steam.StrategyStoreAJAX, sum.WishlistStrategy)
	assert.Len(t, sum.WishlistFailures, 1)
	assert.Equal(t, saveTo, sum.WishlistSaved)
	assert.Equal(t, 2, sum.EventsWritten)

	names, err := CollectNames("", saveTo)
	require.NoError(t, err)
	assert.Equal(t, []string{"Portal 2", "Portal"}, names)
}

func TestRun_WishlistOnly(t *testing.T) {
	entries := []release.WishlistEntry{{AppID: 70, Name: "Half-Life"}}
	wl := &mockWishlist{}
	wl.On("FetchWishlist", mock.Anything, "gaben").Return(&steam.WishlistResult{
		Entries: entries, Strategy: steam.StrategyOwnedGames, Fallback: true,
	}, nil)
	wl.On("FillNames", mock.Anything, entries).Return(entries)
	lookup := &mockLookup{}

	r, dir := newRunner(t, lookup, wl)
	sum, err := r.Run(context.Background(), Request{Wishlist: "gaben", WishlistOnly: true, SaveWishlist: filepath.Join(dir, "w.txt")})
	require.NoError(t, err)
	assert.True(t, sum.WishlistFallback)
	assert.Zero(t, sum.Processed)
	lookup.AssertNotCalled(t, "LookupReleaseByID", mock.Anything, mock.Anything, mock.Anything)
	assert.FileExists(t, filepath.Join(dir, "w.txt"))
}

func TestRun_WishlistOnlyWithoutSave(t *testing.T) {
	wl := &mockWishlist{}
	wl.On("FetchWishlist", mock.Anything, "gaben").Return(&steam.WishlistResult{
		Entries:  []release.WishlistEntry{{AppID: 620}, {AppID: 70}},
		Strategy: steam.StrategyCommunity,
	}, nil)
	lookup := &mockLookup{}

	r, dir := newRunner(t, lookup, wl)
	sum, err := r.Run(context.Background(), Request{Wishlist: "gaben", WishlistOnly: true})
	require.NoError(t, err)
	wl.AssertExpectations(t)
	wl.AssertNotCalled(t, "FillNames", mock.Anything, mock.Anything)
	lookup.AssertNotCalled(t, "LookupReleaseByID", mock.Anything, mock.Anything, mock.Anything)

	assert.Equal(t, steam.StrategyCommunity, sum.WishlistStrategy)
	assert.Empty(t, sum.WishlistSaved)
	assert.Zero(t, sum.Processed)
	assert.NoFileExists(t, filepath.Join(dir, calendar.IndexFilename))
}

func TestRun_WishlistFailure(t *testing.T) {
	wl := &mockWishlist{}
	wl.On("FetchWishlist", mock.Anything, "private").Return(&steam.WishlistResult{
		Failures: []steam.StrategyFailure{{Strategy: steam.StrategyCommunity, Err: steam.ErrPrivate}},
	}, steam.ErrAllStrategiesFailed)

	r, _ := newRunner(t, &mockLookup{}, wl)
	sum, err := r.Run(context.Background(), Request{Wishlist: "private"})
	assert.ErrorIs(t, err, steam.ErrAllStrategiesFailed)
	assert.Len(t, sum.WishlistFailures, 1)
}

func TestParseGameList(t *testing.T) {
	assert.Equal(t, []string{"Hades II", "Silksong", "Portal 2"}, ParseGameList(" Hades II, Silksong ,,Portal 2, "))
	assert.Empty(t, ParseGameList(" , "))
}

func TestCollectNames(t *testing.T) {
	file := filepath.Join(t.TempDir(), "games.txt")
	require.NoError(t, os.WriteFile(file, []byte("# Games from your Steam wishlist\n# One game name per line\n\nHades II\n  Silksong  \n\n"), 0o644))

	names, err := CollectNames("", file)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hades II", "Silksong"}, names)

	names, err = CollectNames("Portal", file)
	require.NoError(t, err)
	assert.Equal(t, []string{"Portal"}, names, "argument wins over file")

	_, err = CollectNames("", "")
	assert.ErrorIs(t, err, ErrNoGames)

	_, err = CollectNames("", filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveWishlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wishlist.txt")
	err := SaveWishlist(path, []release.WishlistEntry{{AppID: 1, Name: "A"}, {AppID: 2}, {AppID: 3, Name: "C"}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Games from your Steam wishlist\n# One game name per line\n\nA\nC\n", string(data))

	empty := filepath.Join(t.TempDir(), "empty.txt")
	err = SaveWishlist(empty, []release.WishlistEntry{{AppID: 9}})
	assert.ErrorIs(t, err, ErrNothingToSave)
	assert.NoFileExists(t, empty)
}
