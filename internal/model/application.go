package model

import (
	"fmt"
	"strings"
)

// ApplicationStatus is the review state of a bounty application.
type ApplicationStatus uint8

const (
	StatusPending ApplicationStatus = iota
	StatusApproved
	StatusRejected
)

// StatusFromCode maps the contract's numeric status code. Unknown codes map to
// StatusPending with ok=false so callers can report them.
func StatusFromCode(code uint64) (ApplicationStatus, bool) {
	switch code {
	case 0:
		return StatusPending, true
	case 1:
		return StatusApproved, true
	case 2:
		return StatusRejected, true
	default:
		return StatusPending, false
	}
}

// ParseStatus accepts a status label, case-insensitively.
func ParseStatus(label string) (ApplicationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pending":
		return StatusPending, true
	case "approved":
		return StatusApproved, true
	case "rejected":
		return StatusRejected, true
	default:
		return StatusPending, false
	}
}

func (s ApplicationStatus) String() string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}

func (s ApplicationStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ApplicationStatus) UnmarshalText(text []byte) error {
	status, ok := ParseStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown application status %q", string(text))
	}
	*s = status
	return nil
}

// Application is one application submitted against a bounty.
type Application struct {
	ID         string            `json:"id"`
	BountyID   string            `json:"bountyId"`
	Applicant  string            `json:"applicant"`
	PRLink     string            `json:"prLink"`
	AppliedAt  string            `json:"appliedAt"`
	Status     ApplicationStatus `json:"status"`
	Validators []string          `json:"validators,omitempty"`
}

// UserApplication is an application joined with its parent bounty's summary.
type UserApplication struct {
	Application
	BountyTitle  string `json:"bountyTitle"`
	BountyAmount string `json:"bountyAmount"`
}
