package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ProfileDB struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID                   string     `bun:"id,pk"`
	FullName             *string    `bun:"full_name"`
	Plan                 Plan       `bun:"plan,notnull,default:'free'"`
	UsageCount           int        `bun:"usage_count,notnull,default:0"`
	UsageResetDate       time.Time  `bun:"usage_reset_date,type:date,notnull,default:current_date"`
	StripeCustomerID     *string    `bun:"stripe_customer_id,unique"`
	StripeSubscriptionID *string    `bun:"stripe_subscription_id"`
	ExpiresAt            *time.Time `bun:"expires_at"`
	CreatedAt            time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt            time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func (p *ProfileDB) ToProfile() *Profile {
	return &Profile{
		ID:                   p.ID,
		FullName:             p.FullName,
		Plan:                 p.Plan,
		UsageCount:           p.UsageCount,
		UsageResetDate:       p.UsageResetDate,
		StripeCustomerID:     p.StripeCustomerID,
		StripeSubscriptionID: p.StripeSubscriptionID,
		ExpiresAt:            p.ExpiresAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func ProfileFromDomain(p *Profile) *ProfileDB {
	return &ProfileDB{
		ID:                   p.ID,
		FullName:             p.FullName,
		Plan:                 p.Plan,
		UsageCount:           p.UsageCount,
		UsageResetDate:       p.UsageResetDate,
		StripeCustomerID:     p.StripeCustomerID,
		StripeSubscriptionID: p.StripeSubscriptionID,
		ExpiresAt:            p.ExpiresAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

type RecordDB struct {
	bun.BaseModel `bun:"table:records,alias:r"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID         string    `bun:"user_id,notnull"`
	AudioURL       *string   `bun:"audio_url"`
	FileName       *string   `bun:"file_name"`
	FileSize       *int64    `bun:"file_size"`
	Transcript     string    `bun:"transcript"`
	Summary        string    `bun:"summary"`
	GeneratedPost  string    `bun:"generated_post"`
	Style          Style     `bun:"style"`
	ProcessingTime string    `bun:"processing_time"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func (r *RecordDB) ToRecord() *Record {
	return &Record{
		ID:             r.ID,
		UserID:         r.UserID,
		AudioURL:       r.AudioURL,
		FileName:       r.FileName,
		FileSize:       r.FileSize,
		Transcript:     r.Transcript,
		Summary:        r.Summary,
		GeneratedPost:  r.GeneratedPost,
		Style:          r.Style,
		ProcessingTime: r.ProcessingTime,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func RecordFromDomain(r *Record) *RecordDB {
	return &RecordDB{
		ID:             r.ID,
		UserID:         r.UserID,
		AudioURL:       r.AudioURL,
		FileName:       r.FileName,
		FileSize:       r.FileSize,
		Transcript:     r.Transcript,
		Summary:        r.Summary,
		GeneratedPost:  r.GeneratedPost,
		Style:          r.Style,
		ProcessingTime: r.ProcessingTime,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type UsageLogDB struct {
	bun.BaseModel `bun:"table:usage_logs,alias:ul"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID         string    `bun:"user_id,notnull"`
	Action         Action    `bun:"action,notnull"`
	FileSize       *int64    `bun:"file_size"`
	ProcessingTime string    `bun:"processing_time"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func UsageLogFromDomain(l *UsageLog) *UsageLogDB {
	return &UsageLogDB{
		ID:             l.ID,
		UserID:         l.UserID,
		Action:         l.Action,
		FileSize:       l.FileSize,
		ProcessingTime: l.ProcessingTime,
		CreatedAt:      l.CreatedAt,
	}
}
