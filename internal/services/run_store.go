package services

import (
	"context"
	"time"

	"insurance-etl/internal/database/redis"
	"insurance-etl/internal/models"

	"github.com/google/uuid"
)

const (
	runKeyPrefix = "etl:runs:"
	runTTL       = 7 * 24 * time.Hour
)

// RunStore persists run summaries in Redis so run state survives service
// restarts and a partial run can be resumed.
type RunStore struct {
	redis *redis.Client
}

func NewRunStore(client *redis.Client) *RunStore {
	return &RunStore{redis: client}
}

func (s *RunStore) Save(ctx context.Context, summary *models.RunSummary) error {
	return s.redis.SetJSON(ctx, runKeyPrefix+summary.RunID.String(), summary, runTTL)
}

// Get loads one run summary. Returns ok=false for unknown run IDs.
func (s *RunStore) Get(ctx context.Context, runID uuid.UUID) (*models.RunSummary, bool, error) {
	var summary models.RunSummary
	ok, err := s.redis.GetJSON(ctx, runKeyPrefix+runID.String(), &summary)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &summary, true, nil
}
