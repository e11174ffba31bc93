package model

import "time"

// Invitation is a tokenized shareable link to the response flow of a survey.
// Deactivation is one-way; there is no reactivation path.
type Invitation struct {
	Token          string    `json:"token"`
	SurveyID       string    `json:"survey_id"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsActive       bool      `json:"is_active"`
	IsExpired      bool      `json:"is_expired"`
	ResponsesCount int       `json:"responses_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func (inv Invitation) Expired(now time.Time) bool {
	return !now.Before(inv.ExpiresAt)
}

// Usable is the effective gate: active and not yet expired. It must be
// rechecked at submission time, the link-validation result can go stale.
func (inv Invitation) Usable(now time.Time) bool {
	return inv.IsActive && now.Before(inv.ExpiresAt)
}

// InvitationTTLHours is the closed menu of link durations.
var InvitationTTLHours = []int{1, 24, 72, 168, 720}

func ValidInvitationTTL(hours int) bool {
	for _, h := range InvitationTTLHours {
		if h == hours {
			return true
		}
	}
	return false
}
