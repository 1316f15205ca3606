package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/ternarybob/macroscope/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// MacroStorage implements the MacroStorage interface for Badger
type MacroStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMacroStorage creates a new MacroStorage instance
func NewMacroStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MacroStorage {
	return &MacroStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDaily upserts the record under its key and refreshes the LATEST pointer
// to mirror it. The pointer keeps its own key but copies every other field.
func (s *MacroStorage) SaveDaily(ctx context.Context, record *models.DailyRecord) error {
	if record.Key == "" {
		return fmt.Errorf("record key is required")
	}
	if record.Key == models.LatestRecordKey {
		return fmt.Errorf("record key %q is reserved", models.LatestRecordKey)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	if err := s.db.Store().Upsert(record.Key, record); err != nil {
		return fmt.Errorf("failed to save daily record %s: %w", record.Key, err)
	}

	pointer := *record
	pointer.Key = models.LatestRecordKey
	if err := s.db.Store().Upsert(models.LatestRecordKey, &pointer); err != nil {
		return fmt.Errorf("failed to update latest pointer: %w", err)
	}

	s.logger.Debug().Str("key", record.Key).Int("indicators", len(record.Indicators)).Msg("Saved daily record")
	return nil
}

// GetDaily returns the record stored under the exact key.
func (s *MacroStorage) GetDaily(ctx context.Context, key string) (*models.DailyRecord, error) {
	var record models.DailyRecord
	if err := s.db.Store().Get(key, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get daily record %s: %w", key, err)
	}
	return &record, nil
}

// FindByDate returns the first record for a calendar date. The bare date key
// is tried first, then provider-suffixed keys via the Date index.
func (s *MacroStorage) FindByDate(ctx context.Context, date string) (*models.DailyRecord, error) {
	if record, err := s.GetDaily(ctx, date); err == nil {
		return record, nil
	} else if err != interfaces.ErrNotFound {
		return nil, err
	}

	var records []models.DailyRecord
	err := s.db.Store().Find(&records,
		badgerhold.Where("Date").Eq(date).And("Key").Ne(models.LatestRecordKey).SortBy("Key"))
	if err != nil {
		return nil, fmt.Errorf("failed to find record for date %s: %w", date, err)
	}
	if len(records) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &records[0], nil
}

// Latest returns the LATEST pointer record.
func (s *MacroStorage) Latest(ctx context.Context) (*models.DailyRecord, error) {
	return s.GetDaily(ctx, models.LatestRecordKey)
}

// MostRecent returns the newest daily record by date, ignoring the pointer.
func (s *MacroStorage) MostRecent(ctx context.Context) (*models.DailyRecord, error) {
	var records []models.DailyRecord
	err := s.db.Store().Find(&records,
		badgerhold.Where("Key").Ne(models.LatestRecordKey).SortBy("Date").Reverse().Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to find most recent record: %w", err)
	}
	if len(records) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &records[0], nil
}

// MergeAnalysis attaches analysis text to the record under key, leaving its
// indicators and legacy columns untouched. Read-modify-write, not replace;
// a missing key gets a fresh record holding just the analysis.
func (s *MacroStorage) MergeAnalysis(ctx context.Context, key string, analysis string) error {
	record, err := s.GetDaily(ctx, key)
	if err == interfaces.ErrNotFound {
		record = &models.DailyRecord{Key: key, Date: keyDate(key)}
	} else if err != nil {
		return err
	}

	now := time.Now()
	record.AIDataAnalysis = analysis
	record.AnalysisTimestamp = &now

	if err := s.db.Store().Upsert(record.Key, record); err != nil {
		return fmt.Errorf("failed to merge analysis into %s: %w", key, err)
	}
	return nil
}

// Count returns the number of stored records, LATEST included.
func (s *MacroStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.DailyRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(count), nil
}

// DailyKey builds the storage key for a date and optional provider suffix,
// e.g. "2026-08-28" or "2026-08-28_CLAUDE".
func DailyKey(date string, provider string) string {
	if provider == "" {
		return date
	}
	return date + "_" + strings.ToUpper(provider)
}

// keyDate recovers the calendar date from a storage key, dropping any
// provider suffix. Keys without a date part, like the LATEST pointer,
// yield an empty date.
func keyDate(key string) string {
	date := key
	if i := strings.Index(key, "_"); i > 0 {
		date = key[:i]
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ""
	}
	return date
}
