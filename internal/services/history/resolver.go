package history

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/ternarybob/macroscope/internal/models"
)

// ErrNoDataAvailable is returned when the store holds nothing to anchor a
// historical window on. Analysis cannot proceed without it.
var ErrNoDataAvailable = errors.New("no macro data available")

// dateLayouts are the formats older records were written with, tried in
// order. Everything is normalized to ISO on the way out.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// Window is a resolved run of daily records, oldest first.
type Window struct {
	Records        []*models.DailyRecord
	MostRecentDate string // ISO date of the anchor record
	Days           int    // requested window size
}

// Resolver assembles historical windows of daily records.
type Resolver struct {
	storage interfaces.MacroStorage
	logger  arbor.ILogger
}

// NewResolver creates a window resolver
func NewResolver(storage interfaces.MacroStorage, logger arbor.ILogger) *Resolver {
	return &Resolver{
		storage: storage,
		logger:  logger,
	}
}

// ResolveWindow finds the most recent record and walks back numDays calendar
// days, collecting whatever records exist. Missing days and records with no
// usable indicators are logged and left out of the result. Records come back
// oldest first, ready for prompt building.
//
// The LATEST pointer anchors the window when it exists, even if a newer
// dated record has appeared beside it; a stale pointer reflects the last
// completed collection run, which is what the analysis should describe.
// Only when the pointer is missing or unreadable does the resolver fall back
// to a sorted scan for the newest dated record.
func (r *Resolver) ResolveWindow(ctx context.Context, numDays int) (*Window, error) {
	anchorDate, err := r.anchorDate(ctx)
	if err != nil {
		return nil, err
	}

	anchor, err := time.Parse("2006-01-02", anchorDate)
	if err != nil {
		// anchorDate is already normalized, this means a corrupt store
		return nil, ErrNoDataAvailable
	}

	// Collect newest to oldest, then reverse.
	records := make([]*models.DailyRecord, 0, numDays)
	for i := 0; i < numDays; i++ {
		date := anchor.AddDate(0, 0, -i).Format("2006-01-02")
		record, err := r.storage.FindByDate(ctx, date)
		if err != nil {
			if err == interfaces.ErrNotFound {
				r.logger.Warn().Str("date", date).Msg("No record for date in window")
				continue
			}
			return nil, err
		}
		if len(NormalizeIndicators(record)) == 0 {
			r.logger.Warn().Str("date", date).Str("key", record.Key).Msg("Record carries no usable indicators, dropping from window")
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, ErrNoDataAvailable
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	r.logger.Info().
		Str("anchor", anchorDate).
		Int("days", numDays).
		Int("records", len(records)).
		Msg("Resolved historical window")

	return &Window{
		Records:        records,
		MostRecentDate: anchorDate,
		Days:           numDays,
	}, nil
}

// anchorDate returns the ISO date the window should end on.
func (r *Resolver) anchorDate(ctx context.Context) (string, error) {
	latest, err := r.storage.Latest(ctx)
	if err == nil {
		if date, ok := NormalizeDate(latest.Date); ok {
			return date, nil
		}
		r.logger.Warn().Str("date", latest.Date).Msg("Latest pointer has unreadable date, falling back to sorted scan")
	} else if err != interfaces.ErrNotFound {
		return "", err
	}

	recent, err := r.storage.MostRecent(ctx)
	if err != nil {
		if err == interfaces.ErrNotFound {
			return "", ErrNoDataAvailable
		}
		return "", err
	}

	if date, ok := NormalizeDate(recent.Date); ok {
		return date, nil
	}
	return "", ErrNoDataAvailable
}

// NormalizeDate parses a stored date in any of the known layouts and
// reformats it as ISO "2006-01-02".
func NormalizeDate(date string) (string, bool) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, date); err == nil {
			return parsed.Format("2006-01-02"), true
		}
	}
	return "", false
}
