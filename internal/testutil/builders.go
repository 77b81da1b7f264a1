// Package testutil provides testing utilities and fixture builders for the
// complaint portal.
package testutil

import (
	"github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
)

// AccountBuilder provides a fluent interface for building accounts in tests.
type AccountBuilder struct {
	acc auth.Account
}

// NewAccount creates an active citizen account with sensible defaults.
func NewAccount() *AccountBuilder {
	now := TestTime()
	return &AccountBuilder{acc: auth.Account{
		ID:        1,
		FullName:  "Test Citizen",
		Email:     "citizen@example.org",
		Role:      auth.RoleCitizen,
		Status:    auth.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

// WithID sets the account ID.
func (b *AccountBuilder) WithID(id int64) *AccountBuilder {
	b.acc.ID = id
	return b
}

// WithEmail sets the email.
func (b *AccountBuilder) WithEmail(email string) *AccountBuilder {
	b.acc.Email = email
	return b
}

// WithName sets the full name.
func (b *AccountBuilder) WithName(name string) *AccountBuilder {
	b.acc.FullName = name
	return b
}

// WithRole sets the role.
func (b *AccountBuilder) WithRole(role auth.Role) *AccountBuilder {
	b.acc.Role = role
	return b
}

// WithPasswordHash sets the stored hash.
func (b *AccountBuilder) WithPasswordHash(hash string) *AccountBuilder {
	b.acc.PasswordHash = hash
	return b
}

// Inactive marks the account inactive.
func (b *AccountBuilder) Inactive() *AccountBuilder {
	b.acc.Status = auth.StatusInactive
	return b
}

// Build returns a copy of the account.
func (b *AccountBuilder) Build() *auth.Account {
	acc := b.acc
	return &acc
}

// ComplaintBuilder provides a fluent interface for building complaints in tests.
type ComplaintBuilder struct {
	c model.Complaint
}

// NewComplaint creates an open complaint owned by user 1.
func NewComplaint() *ComplaintBuilder {
	now := TestTime()
	return &ComplaintBuilder{c: model.Complaint{
		ID:          1,
		UserID:      1,
		Title:       "Streetlight out",
		Description: "The light on Elm St has been out for a week.",
		Category:    "lighting",
		Status:      model.ComplaintStatusOpen,
		Priority:    model.PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}
}

// WithID sets the complaint ID.
func (b *ComplaintBuilder) WithID(id int64) *ComplaintBuilder {
	b.c.ID = id
	return b
}

// OwnedBy sets the submitting user.
func (b *ComplaintBuilder) OwnedBy(userID int64) *ComplaintBuilder {
	b.c.UserID = userID
	return b
}

// AssignedTo sets the assignee.
func (b *ComplaintBuilder) AssignedTo(userID int64) *ComplaintBuilder {
	b.c.AssignedTo = &userID
	return b
}

// Build returns a copy of the complaint.
func (b *ComplaintBuilder) Build() *model.Complaint {
	c := b.c
	return &c
}
