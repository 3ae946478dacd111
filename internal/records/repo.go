package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/voice2post/voice2post/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Repository scopes every query by the owning user id.
type Repository interface {
	// Save updates the record named by rec.ID when userID owns it and
	// inserts a new record otherwise. The saved id is written back to rec.
	Save(ctx context.Context, userID string, rec *models.Record) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Record, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type RecordRepository struct {
	db bun.IDB
}

func NewRecordRepository(db bun.IDB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Save(ctx context.Context, userID string, rec *models.Record) error {
	rec.UserID = userID
	now := time.Now()
	rec.UpdatedAt = now

	if rec.ID != uuid.Nil {
		res, err := r.db.NewUpdate().
			Model(models.RecordFromDomain(rec)).
			Column("transcript", "summary", "generated_post", "style", "processing_time", "updated_at").
			Where("id = ?", rec.ID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
	}

	rec.ID = uuid.New()
	rec.CreatedAt = now
	if _, err := r.db.NewInsert().Model(models.RecordFromDomain(rec)).Exec(ctx); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (r *RecordRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Record, error) {
	var rows []models.RecordDB
	q := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*models.Record, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToRecord())
	}
	return out, nil
}

func (r *RecordRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*models.RecordDB)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
