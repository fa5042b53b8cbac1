package calendar

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/renameio/v2"

	"steam-release-calendar/internal/metrics"
	"steam-release-calendar/internal/release"
)

const (
	CombinedFilename = "all_game_releases.ics"
	IndexFilename    = "game_releases.html"
)

// ErrNoEvents is returned by WriteCombined when no release has a usable date.
var ErrNoEvents = errors.New("no releases with a usable date")

//go:embed index.html.tmpl
var indexTemplateText string

var indexTemplate = template.Must(template.New("index").Parse(indexTemplateText))

// Writer puts calendar artifacts in Dir, creating it on first write.
type Writer struct {
	Dir    string
	Logger *slog.Logger
}

func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Dir: dir, Logger: logger}
}

// SafeFilename replaces every rune that is not a letter or digit with '_'.
func SafeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
}

// EventFilename is the base name WriteEvent uses for info.
func EventFilename(info release.Info) string {
	return SafeFilename(info.Name) + "_release.ics"
}

// WriteEvent writes a single-event calendar for info and returns its path.
func (w *Writer) WriteEvent(info release.Info) (string, error) {
	cal := New()
	if err := cal.AddRelease(info); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, EventFilename(info))
	if err := w.writeCalendar(path, cal); err != nil {
		return "", err
	}
	metrics.EventsWritten.Inc()
	w.logger().Info("created calendar event file", "game", info.Name, "path", path)
	return path, nil
}

// WriteCombined writes every release that has an event date into one
// calendar. Releases without one are skipped; if that leaves nothing the
// file is not written and ErrNoEvents is returned.
func (w *Writer) WriteCombined(infos []release.Info) (string, int, error) {
	cal := New()
	for _, info := range infos {
		if err := cal.AddRelease(info); err != nil {
			w.logger().Info("skipping release in combined calendar", "game", info.Name, "err", err)
		}
	}
	if cal.Len() == 0 {
		return "", 0, ErrNoEvents
	}
	path := filepath.Join(w.Dir, CombinedFilename)
	if err := w.writeCalendar(path, cal); err != nil {
		return "", 0, err
	}
	w.logger().Info("created combined calendar file", "events", cal.Len(), "path", path)
	return path, cal.Len(), nil
}

// IndexEntry is one game card on the HTML page. EventFile is the base name
// of its .ics file, empty when none was written.
type IndexEntry struct {
	Info      release.Info
	EventFile string
}

// Index is the content of the HTML page. CombinedFile is empty when there is
// no combined calendar.
type Index struct {
	CombinedFile string
	Entries      []IndexEntry
}

type indexCard struct {
	Name        string
	HeaderImage string
	Date        string
	Description string
	GoogleURL   string
	EventFile   string
	StoreURL    string
}

// WriteIndex renders the HTML page linking every artifact.
func (w *Writer) WriteIndex(idx Index) (string, error) {
	cards := make([]indexCard, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		name := e.Info.Name
		if name == "" {
			name = "Unknown Game"
		}
		google, _ := GoogleCalendarURL(e.Info)
		cards = append(cards, indexCard{
			Name:        name,
			HeaderImage: e.Info.HeaderImage,
			Date:        e.Info.Date.String(),
			Description: e.Info.ShortDescription,
			GoogleURL:   google,
			EventFile:   e.EventFile,
			StoreURL:    e.Info.StoreURL(),
		})
	}

	combined := ""
	if idx.CombinedFile != "" {
		combined = filepath.Base(idx.CombinedFile)
	}

	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, struct {
		CombinedFile string
		Cards        []indexCard
	}{combined, cards})
	if err != nil {
		return "", fmt.Errorf("render index: %w", err)
	}

	path := filepath.Join(w.Dir, IndexFilename)
	if err := w.writeFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	w.logger().Info("created html calendar page", "path", path)
	return path, nil
}

func (w *Writer) writeCalendar(path string, cal *Calendar) error {
	data, err := cal.Serialize()
	if err != nil {
		return err
	}
	return w.writeFile(path, data)
}

func (w *Writer) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
