package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/interfaces"
	"github.com/ternarybob/macroscope/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AnalysisStorage implements the AnalysisStorage interface for Badger
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AnalysisStorage) SaveAnalysis(ctx context.Context, analysis *models.TopicAnalysis) error {
	if analysis.Topic == "" {
		return fmt.Errorf("analysis topic is required")
	}
	if analysis.GeneratedAt.IsZero() {
		analysis.GeneratedAt = time.Now()
	}

	if err := s.db.Store().Upsert(analysis.Topic, analysis); err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", analysis.Topic, err)
	}

	s.logger.Debug().Str("topic", analysis.Topic).Int("length", len(analysis.Text)).Msg("Saved analysis document")
	return nil
}

func (s *AnalysisStorage) GetAnalysis(ctx context.Context, topic string) (*models.TopicAnalysis, error) {
	var analysis models.TopicAnalysis
	if err := s.db.Store().Get(topic, &analysis); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis %s: %w", topic, err)
	}
	return &analysis, nil
}
