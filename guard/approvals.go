package guard

import (
	"context"
	"time"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"

	// ApprovalExpired is reached lazily: a pending record whose
	// ExpiresAt has passed is swept into this state the next time the
	// store is read, and can no longer be approved or denied.
	ApprovalExpired ApprovalStatus = "expired"
)

// ApprovalRecord is one held action awaiting an operator decision. The
// summary is stored redacted; an approval queue must never become a
// secondary secret store.
type ApprovalRecord struct {
	ID         string
	RunID      string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ResolvedAt *time.Time

	Status  ApprovalStatus
	Actor   string
	Comment string

	ActionType ActionType
	ActionHash string

	RiskLevel RiskLevel
	Reasons   []string

	SummaryRedacted string
}

type ApprovalStore interface {
	Create(ctx context.Context, rec ApprovalRecord) (string, error)
	Get(ctx context.Context, id string) (ApprovalRecord, bool, error)
	List(ctx context.Context, status ApprovalStatus, limit int) ([]ApprovalRecord, error)
	Resolve(ctx context.Context, id string, status ApprovalStatus, actor string, comment string) error
}
