package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/voice2post/voice2post/internal/models"
)

// LogStore appends usage_logs rows. It never updates or deletes them.
type LogStore interface {
	Append(ctx context.Context, entry *models.UsageLog) error
}

type LogRepository struct {
	db bun.IDB
}

func NewLogRepository(db bun.IDB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Append(ctx context.Context, entry *models.UsageLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().Model(models.UsageLogFromDomain(entry)).Exec(ctx)
	return err
}
