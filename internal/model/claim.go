package model

// Claim is the backend's answer to a points claim.
type Claim struct {
	Points  int
	Message string
}

// ClaimResult is the banner shown in the detail view after a claim.
type ClaimResult struct {
	Success bool
	Points  int
	Message string
}
