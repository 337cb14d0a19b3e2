// Package audit implements the append-only CrisisEvent log described in
// §3/§6: a record of every turn the orchestrator classified at MEDIUM or
// above, or that tripped a failure flag, persisted for compliance review
// and never mutated after it is written.
package audit

import (
	"time"

	"github.com/nzcrisisline/safetypipeline/internal/domain"
)

// ReviewerStatus is the closed set of states a human review workflow may
// set on a CrisisEvent after it is created. The orchestrator always
// creates an event as ReviewerStatusPending; only the review workflow
// transitions it from there.
type ReviewerStatus string

const (
	ReviewerStatusPending   ReviewerStatus = "pending"
	ReviewerStatusReviewed  ReviewerStatus = "reviewed"
	ReviewerStatusDismissed ReviewerStatus = "dismissed"
)

// CrisisEvent is a single append-only audit record.
type CrisisEvent struct {
	ID                       string
	ConversationID           string
	UserID                   string
	MessageID                string
	Region                   domain.Region
	RiskLevel                domain.RiskLevel
	Patterns                 []string
	ToolCallsMade            []string
	ResourcesOffered         []string
	AIFailureDetected        bool
	ModelDegradationDetected bool
	ConversationStopped      bool
	FailureReason            string
	Degraded                 bool
	ReviewerStatus           ReviewerStatus
	CreatedAt                time.Time
}
