package usage

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"github.com/voice2post/voice2post/internal/models"
)

// RPCLedger delegates the decision to the check_usage_limit and
// increment_usage database functions.
type RPCLedger struct {
	db  bun.IDB
	now func() time.Time
}

func NewRPCLedger(db bun.IDB) *RPCLedger {
	return &RPCLedger{db: db, now: time.Now}
}

func (l *RPCLedger) CanPerform(ctx context.Context, userID string) (ok bool, err error) {
	defer func(start time.Time) { observeCheck("rpc", start, ok, err) }(time.Now())

	if err := l.db.NewRaw("SELECT check_usage_limit(?)", userID).Scan(ctx, &ok); err != nil {
		return false, quotaFailure("check_usage_limit", err)
	}
	return ok, nil
}

func (l *RPCLedger) Record(ctx context.Context, userID string) error {
	_, err := l.db.ExecContext(ctx, "SELECT increment_usage(?)", userID)
	observeRecord("rpc", err)
	if err != nil {
		return quotaFailure("increment_usage", err)
	}
	return nil
}

// Status runs check_usage_limit first so the row it reads is already
// rolled over.
func (l *RPCLedger) Status(ctx context.Context, userID string) (*Status, error) {
	if _, err := l.CanPerform(ctx, userID); err != nil {
		return nil, err
	}
	profileDB := new(models.ProfileDB)
	if err := l.db.NewSelect().Model(profileDB).Where("id = ?", userID).Scan(ctx); err != nil {
		return nil, quotaFailure("load profile", err)
	}
	return newStatus(profileDB.ToProfile(), l.now()), nil
}
