package models

import "time"

// Family is the tenant boundary: a household sharing one invite code and one
// activity ledger.
type Family struct {
	ID         int64
	Name       string
	InviteCode string
	CreatedBy  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Member is the projection of a user returned with family listings
type Member struct {
	ID          int64
	DisplayName string
	FamilyRole  string
	Name        string
}

// FamilyWithMembers combines a family with its current member list
type FamilyWithMembers struct {
	Family  Family
	Members []Member
}
