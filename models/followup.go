package models

import (
	"fmt"
	"time"
)

// Follow-up lifecycle statuses. A record leaves StatusPending at most once.
const (
	StatusPending       = "pending"
	StatusSent          = "sent"
	StatusPendingManual = "pending-manual"
	StatusCancelled     = "cancelled"
)

// Outreach channels. Only email is delivered automatically; the rest
// surface as pending-manual for the sales team.
const (
	ChannelEmail    = "email"
	ChannelLinkedIn = "linkedin"
	ChannelPhone    = "phone"
	ChannelWhatsApp = "whatsapp"
)

// Message tones passed through to generation.
const (
	ToneFormal   = "formal"
	ToneFriendly = "friendly"
	ToneDirect   = "direct"
)

// KeyPrefix namespaces every follow-up entry in the store.
const KeyPrefix = "followup:"

// Record lifetimes: 90 days from scheduling, shortened to 30 days once
// the record reaches a terminal status.
const (
	ScheduleTTL  = 90 * 24 * time.Hour
	ProcessedTTL = 30 * 24 * time.Hour
)

// FollowUpRecord is one step of an outreach sequence, persisted as JSON
// under KeyPrefix + ID. The lead contact fields are a snapshot taken at
// scheduling time.
type FollowUpRecord struct {
	ID            string     `json:"id"`
	LeadID        string     `json:"leadId"`
	CompanyName   string     `json:"companyName"`
	ContactPerson string     `json:"contactPerson"`
	Email         string     `json:"email"`
	Industry      string     `json:"industry"`
	City          string     `json:"city"`
	Website       string     `json:"website"`
	ScheduledDate time.Time  `json:"scheduledDate"`
	SequenceStep  int        `json:"sequenceStep"`
	TotalSteps    int        `json:"totalSteps"`
	Channel       string     `json:"channel"`
	Tone          string     `json:"tone"`
	FocusPoint    string     `json:"focusPoint"`
	Status        string     `json:"status"`

	GeneratedSubject string     `json:"generatedSubject,omitempty"`
	GeneratedMessage string     `json:"generatedMessage,omitempty"`
	LastError        string     `json:"lastError,omitempty"`
	ProcessedAt      *time.Time `json:"processedAt,omitempty"`
}

// Key returns the store key for this record.
func (r *FollowUpRecord) Key() string {
	return KeyPrefix + r.ID
}

// FollowUpID builds the unique per-step record ID.
func FollowUpID(leadID string, step int, createdAt time.Time) string {
	return fmt.Sprintf("%s-step%d-%d", leadID, step, createdAt.UnixMilli())
}

// LeadKeyPattern matches every record belonging to one lead.
func LeadKeyPattern(leadID string) string {
	return KeyPrefix + leadID + "-*"
}

// FollowUpStep is one planned step in a scheduling request.
type FollowUpStep struct {
	DayOffset  int    `json:"dayOffset" validate:"min=0"`
	Channel    string `json:"channel" validate:"required,oneof=email linkedin phone whatsapp"`
	Tone       string `json:"tone" validate:"omitempty,oneof=formal friendly direct"`
	FocusPoint string `json:"focusPoint"`
}

// SchedulePlanRequest is the body of the scheduling endpoint.
type SchedulePlanRequest struct {
	LeadID        string         `json:"leadId" validate:"required"`
	CompanyName   string         `json:"companyName" validate:"required"`
	ContactPerson string         `json:"contactPerson"`
	Email         string         `json:"email" validate:"required"`
	Industry      string         `json:"industry"`
	City          string         `json:"city"`
	Website       string         `json:"website"`
	Steps         []FollowUpStep `json:"steps" validate:"required,min=1,dive"`
}

// ScheduledFollowUp is the per-step confirmation returned to the caller.
type ScheduledFollowUp struct {
	Step          int    `json:"step"`
	ScheduledDate string `json:"scheduledDate"`
	Channel       string `json:"channel"`
}

// CancelPlanRequest stops the remaining steps of a lead's sequence.
type CancelPlanRequest struct {
	LeadID string `json:"leadId" validate:"required"`
}
