package model

import (
	"strconv"
	"strings"
)

// Bounty is one bounty record decoded from a GetBounty dump.
type Bounty struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IssueURL    string `json:"issueUrl"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Creator     string `json:"creator"`
	CreatedAt   string `json:"createdAt"`
	IsClaimed   bool   `json:"isClaimed"`
	Claimer     string `json:"claimer"`
	ClaimedAt   string `json:"claimedAt"`
}

// NumericID parses a decimal record ID. Non-numeric IDs sort as zero.
func NumericID(id string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// IDDesc reports whether a sorts before b when ordering newest (highest ID) first.
func IDDesc(a, b string) bool {
	return NumericID(a) > NumericID(b)
}
