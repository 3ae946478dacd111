package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/voice2post/voice2post/internal/models"
)

// TxLedger evaluates the policy in Go under a row lock, for databases
// without the usage functions installed.
type TxLedger struct {
	db  *bun.DB
	now func() time.Time
}

func NewTxLedger(db *bun.DB) *TxLedger {
	return &TxLedger{db: db, now: time.Now}
}

// withLockedProfile loads userID FOR UPDATE, lets fn change it, and writes
// the usage columns back when fn reports a change.
func (l *TxLedger) withLockedProfile(ctx context.Context, userID string, fn func(p *models.Profile) bool) (*models.Profile, error) {
	var out *models.Profile
	err := l.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		profileDB := new(models.ProfileDB)
		if err := tx.NewSelect().
			Model(profileDB).
			Where("id = ?", userID).
			For("UPDATE").
			Scan(ctx); err != nil {
			return err
		}

		p := profileDB.ToProfile()
		if fn(p) {
			if _, err := tx.NewUpdate().
				Model((*models.ProfileDB)(nil)).
				Set("usage_count = ?", p.UsageCount).
				Set("usage_reset_date = ?", p.UsageResetDate).
				Set("updated_at = ?", l.now()).
				Where("id = ?", userID).
				Exec(ctx); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	return out, err
}

func (l *TxLedger) CanPerform(ctx context.Context, userID string) (ok bool, err error) {
	defer func(start time.Time) { observeCheck("tx", start, ok, err) }(time.Now())

	now := l.now()
	_, err = l.withLockedProfile(ctx, userID, func(p *models.Profile) bool {
		rolled := Rollover(p, now)
		ok = Allowed(p, now)
		return rolled
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, quotaFailure("check usage", err)
	}
	return ok, nil
}

func (l *TxLedger) Record(ctx context.Context, userID string) error {
	now := l.now()
	_, err := l.withLockedProfile(ctx, userID, func(p *models.Profile) bool {
		Increment(p, now)
		return true
	})
	observeRecord("tx", err)
	if err != nil {
		return quotaFailure("increment usage", err)
	}
	return nil
}

func (l *TxLedger) Status(ctx context.Context, userID string) (*Status, error) {
	now := l.now()
	p, err := l.withLockedProfile(ctx, userID, func(p *models.Profile) bool {
		return Rollover(p, now)
	})
	if err != nil {
		return nil, quotaFailure("usage status", err)
	}
	return newStatus(p, now), nil
}
