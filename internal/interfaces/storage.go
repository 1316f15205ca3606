// -----------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026 4:12:08 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/macroscope/internal/models"
)

// ErrNotFound is returned by storage lookups when no record exists for the
// requested key.
var ErrNotFound = errors.New("record not found")

// MacroStorage - interface for daily macro record persistence
type MacroStorage interface {
	// SaveDaily upserts a daily record by its key and refreshes the LATEST
	// pointer to mirror it.
	SaveDaily(ctx context.Context, record *models.DailyRecord) error

	// GetDaily returns the record stored under the exact key.
	GetDaily(ctx context.Context, key string) (*models.DailyRecord, error)

	// FindByDate returns the first record for a calendar date, trying the
	// bare date key before provider-suffixed keys.
	FindByDate(ctx context.Context, date string) (*models.DailyRecord, error)

	// Latest returns the LATEST pointer record.
	Latest(ctx context.Context) (*models.DailyRecord, error)

	// MostRecent returns the newest daily record by date, ignoring the
	// LATEST pointer.
	MostRecent(ctx context.Context) (*models.DailyRecord, error)

	// MergeAnalysis attaches analysis text to an existing record without
	// disturbing its other fields.
	MergeAnalysis(ctx context.Context, key string, analysis string) error

	// Count returns the number of stored records, LATEST included.
	Count(ctx context.Context) (int, error)
}

// AnalysisStorage - interface for generated analysis documents
type AnalysisStorage interface {
	SaveAnalysis(ctx context.Context, analysis *models.TopicAnalysis) error
	GetAnalysis(ctx context.Context, topic string) (*models.TopicAnalysis, error)
}
