// Package app runs the lookup pipeline: collect games, look each one up,
// write the calendar artifacts.
package app

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/schollz/progressbar/v3"

	"steam-release-calendar/internal/calendar"
	"steam-release-calendar/internal/release"
	"steam-release-calendar/internal/steam"
)

var (
	ErrNoGames        = errors.New("no games specified")
	ErrNothingFound   = errors.New("no release information found for any game")
	ErrNothingToSave  = errors.New("no game names to save")
	ErrConflictingSrc = errors.New("give either game names or a wishlist, not both")
)

// ReleaseLookup finds release records.
type ReleaseLookup interface {
	LookupRelease(ctx context.Context, name string) (release.Info, error)
	LookupReleaseByID(ctx context.Context, appID int, fallbackName string) (release.Info, error)
}

// WishlistSource fetches wishlists and fills in missing names.
type WishlistSource interface {
	FetchWishlist(ctx context.Context, identifier string) (*steam.WishlistResult, error)
	FillNames(ctx context.Context, entries []release.WishlistEntry) []release.WishlistEntry
}

type Options struct {
	Quiet  bool
	Logger *slog.Logger
}

// Runner wires lookups to the calendar writer.
type Runner struct {
	lookup   ReleaseLookup
	wishlist WishlistSource
	writer   *calendar.Writer
	opts     Options
	log      *slog.Logger
}

func NewRunner(lookup ReleaseLookup, wishlist WishlistSource, writer *calendar.Writer, opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{lookup: lookup, wishlist: wishlist, writer: writer, opts: opts, log: log}
}

// Request says where the games come from. Exactly one of Names and Wishlist
// is set.
type Request struct {
	Names    []string
	Wishlist string
	// SaveWishlist, if set, is where the wishlist's names are written.
	SaveWishlist string
	// WishlistOnly stops after fetching (and saving) the wishlist.
	WishlistOnly bool
}

type Summary struct {
	Processed     int
	Found         int
	EventsWritten int
	Skipped       []string
	EventFiles    []string
	CombinedFile  string
	IndexFile     string

	WishlistStrategy string
	WishlistFallback bool
	WishlistFailures []steam.StrategyFailure
	WishlistSaved    string
}

type target struct {
	name  string
	appID int
}

// Run executes req. Games that cannot be found are logged and skipped; the
// returned Summary is filled as far as the run got even when err is set.
func (r *Runner) Run(ctx context.Context, req Request) (*Summary, error) {
	sum := &Summary{}

	var targets []target
	switch {
	case req.Wishlist != "" && len(req.Names) > 0:
		return sum, ErrConflictingSrc
	case req.Wishlist != "":
		t, err := r.wishlistTargets(ctx, req, sum)
		if err != nil || req.WishlistOnly {
			return sum, err
		}
		targets = t
	default:
		for _, n := range req.Names {
			targets = append(targets, target{name: n})
		}
	}
	if len(targets) == 0 {
		return sum, ErrNoGames
	}

	r.log.Info("processing games", "count", len(targets))
	bar := r.progressBar(len(targets))
	defer func() { _ = bar.Finish() }()

	var entries []calendar.IndexEntry
	var infos []release.Info
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Processed++

		info, err := r.lookupTarget(ctx, t)
		_ = bar.Add(1)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			r.log.Warn("could not find release information, skipping", "game", t.name, "app_id", t.appID, "err", err)
			sum.Skipped = append(sum.Skipped, t.label())
			continue
		}
		sum.Found++
		r.log.Info("found game", "game", info.Name, "app_id", info.AppID,
			"release_date", info.Date.String(), "coming_soon", info.ComingSoon)

		entry := calendar.IndexEntry{Info: info}
		path, err := r.writer.WriteEvent(info)
		switch {
		case errors.Is(err, release.ErrNoDate), errors.Is(err, release.ErrUnparseableDate):
			r.log.Info("no usable release date, no event file", "game", info.Name, "date", info.Date.Raw)
		case err != nil:
			return sum, err
		default:
			sum.EventsWritten++
			sum.EventFiles = append(sum.EventFiles, path)
			entry.EventFile = filepath.Base(path)
		}
		infos = append(infos, info)
		entries = append(entries, entry)
	}

	if len(infos) == 0 {
		return sum, ErrNothingFound
	}

	combined, _, err := r.writer.WriteCombined(infos)
	if err != nil && !errors.Is(err, calendar.ErrNoEvents) {
		return sum, err
	}
	sum.CombinedFile = combined

	index, err := r.writer.WriteIndex(calendar.Index{CombinedFile: combined, Entries: entries})
	if err != nil {
		return sum, err
	}
	sum.IndexFile = index
	return sum, nil
}

func (r *Runner) wishlistTargets(ctx context.Context, req Request, sum *Summary) ([]target, error) {
	if r.wishlist == nil {
		return nil, errors.New("no wishlist source configured")
	}
	res, err := r.wishlist.FetchWishlist(ctx, req.Wishlist)
	if res != nil {
		sum.WishlistStrategy = res.Strategy
		sum.WishlistFallback = res.Fallback
		sum.WishlistFailures = res.Failures
	}
	if err != nil {
		return nil, err
	}
	if res.Fallback {
		r.log.Warn("wishlist could not be read, using owned games instead", "strategy", res.Strategy)
	}

	if req.WishlistOnly && req.SaveWishlist == "" {
		r.log.Info("fetched wishlist", "strategy", res.Strategy, "games", len(res.Entries))
		return nil, nil
	}

	entries := r.wishlist.FillNames(ctx, res.Entries)
	if req.SaveWishlist != "" {
		if err := SaveWishlist(req.SaveWishlist, entries); err != nil {
			return nil, err
		}
		sum.WishlistSaved = req.SaveWishlist
		r.log.Info("saved wishlist", "path", req.SaveWishlist, "games", len(entries))
	}

	targets := make([]target, 0, len(entries))
	for _, e := range entries {
		targets = append(targets, target{name: e.Name, appID: e.AppID})
	}
	return targets, nil
}

func (r *Runner) lookupTarget(ctx context.Context, t target) (release.Info, error) {
	if t.appID > 0 {
		return r.lookup.LookupReleaseByID(ctx, t.appID, t.name)
	}
	return r.lookup.LookupRelease(ctx, t.name)
}

func (t target) label() string {
	if t.name != "" {
		return t.name
	}
	return fmt.Sprintf("app %d", t.appID)
}

func (r *Runner) progressBar(n int) *progressbar.ProgressBar {
	if r.opts.Quiet {
		return progressbar.DefaultSilent(int64(n), "looking up games")
	}
	return progressbar.Default(int64(n), "looking up games")
}

// CollectNames returns the game names from a comma-separated argument, or,
// when that is empty, from a file with one name per line. Blank lines and
// lines starting with '#' are skipped.
func CollectNames(arg, file string) ([]string, error) {
	if strings.TrimSpace(arg) != "" {
		return ParseGameList(arg), nil
	}
	if file == "" {
		return nil, ErrNoGames
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("read game list: %w", err)
	}
	defer f.Close()
	return readGameList(f)
}

// ParseGameList splits a comma-separated list of names.
func ParseGameList(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func readGameList(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read game list: %w", err)
	}
	return names, nil
}

// SaveWishlist writes the named entries to path in the game list format
// CollectNames reads back.
func SaveWishlist(path string, entries []release.WishlistEntry) error {
	var buf bytes.Buffer
	buf.WriteString("# Games from your Steam wishlist\n")
	buf.WriteString("# One game name per line\n\n")
	n := 0
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		buf.WriteString(e.Name)
		buf.WriteByte('\n')
		n++
	}
	if n == 0 {
		return ErrNothingToSave
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save wishlist: %w", err)
		}
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save wishlist: %w", err)
	}
	return nil
}
