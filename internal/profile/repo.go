package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/voice2post/voice2post/internal/models"
)

var ErrNotFound = errors.New("profile not found")

type Repository interface {
	GetByID(ctx context.Context, userID string) (*models.Profile, error)
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Profile, error)
	GetOrCreate(ctx context.Context, userID, fullName string) (*models.Profile, error)
	ActivatePlus(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string) error
	SetPlan(ctx context.Context, userID string, plan models.Plan) error
	ClearSubscription(ctx context.Context, userID string) error
}

type ProfileRepository struct {
	db bun.IDB
}

func NewProfileRepository(db bun.IDB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, userID string) (*models.Profile, error) {
	profileDB := new(models.ProfileDB)
	err := r.db.NewSelect().
		Model(profileDB).
		Where("id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return profileDB.ToProfile(), nil
}

func (r *ProfileRepository) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Profile, error) {
	profileDB := new(models.ProfileDB)
	err := r.db.NewSelect().
		Model(profileDB).
		Where("stripe_customer_id = ?", stripeCustomerID).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return profileDB.ToProfile(), nil
}

// GetOrCreate returns the caller's profile, creating a free one on first
// sight. Concurrent first requests race on the primary key; the loser's
// insert is a no-op and both read the same row.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID, fullName string) (*models.Profile, error) {
	p, err := r.GetByID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	profileDB := &models.ProfileDB{
		ID:             userID,
		Plan:           models.PlanFree,
		UsageResetDate: now.Truncate(24 * time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if fullName != "" {
		profileDB.FullName = &fullName
	}

	if _, err := r.db.NewInsert().Model(profileDB).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return r.GetByID(ctx, userID)
}

// ActivatePlus upgrades userID and links the payment-provider references.
func (r *ProfileRepository) ActivatePlus(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string) error {
	q := r.db.NewUpdate().
		Model((*models.ProfileDB)(nil)).
		Set("plan = ?", models.PlanPlus).
		Set("updated_at = ?", time.Now())
	if stripeCustomerID != "" {
		q = q.Set("stripe_customer_id = ?", stripeCustomerID)
	}
	if stripeSubscriptionID != "" {
		q = q.Set("stripe_subscription_id = ?", stripeSubscriptionID)
	}
	res, err := q.Where("id = ?", userID).Exec(ctx)
	return checkAffected(res, err)
}

func (r *ProfileRepository) SetPlan(ctx context.Context, userID string, plan models.Plan) error {
	if !plan.Valid() {
		return fmt.Errorf("invalid plan %q", plan)
	}
	res, err := r.db.NewUpdate().
		Model((*models.ProfileDB)(nil)).
		Set("plan = ?", plan).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	return checkAffected(res, err)
}

// ClearSubscription drops userID to free and forgets the subscription
// reference. The customer reference is kept for a later resubscribe.
func (r *ProfileRepository) ClearSubscription(ctx context.Context, userID string) error {
	res, err := r.db.NewUpdate().
		Model((*models.ProfileDB)(nil)).
		Set("plan = ?", models.PlanFree).
		Set("stripe_subscription_id = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	return checkAffected(res, err)
}

func wrapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
