// Package model defines domain entities used by services and repositories.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Role is the immutable kind of account chosen at registration.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleLab     Role = "lab"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RolePatient, RoleDoctor, RoleLab}

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Status is the account lifecycle state.
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusPending    Status = "pending"
	StatusUnverified Status = "unverified"
)

// ParseStatus normalises s and reports whether it names a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusActive, StatusInactive, StatusPending, StatusUnverified:
		return st, true
	}
	return "", false
}

// Profile is the durable identity of a user, independent of credentials.
type Profile struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              Role      `json:"role"`
	Status            Status    `json:"status"`
	LastActivity      time.Time `json:"lastActivity"`
	EmailVerified     bool      `json:"emailVerified"`
	VerificationToken string    `json:"verificationToken,omitempty"`
}

// Credential holds the secret and one-time tokens tied to an email.
// ResetTokenExpiry is meaningful only while ResetToken is set.
type Credential struct {
	PwdHash           []byte     `json:"passwordHash"`
	Salt              []byte     `json:"salt"`
	UserID            string     `json:"userId"`
	VerificationToken string     `json:"verificationToken,omitempty"`
	ResetToken        string     `json:"resetToken,omitempty"`
	ResetTokenExpiry  *time.Time `json:"resetTokenExpiry,omitempty"`
}

// ClearReset drops the reset token together with its expiry.
func (c *Credential) ClearReset() {
	c.ResetToken = ""
	c.ResetTokenExpiry = nil
}

// Record is an append-only entry owned by a single user. Fields carries the
// arbitrary payload supplied by the caller; it is stored flat next to id,
// createdAt and userId.
type Record struct {
	ID        string
	CreatedAt time.Time
	UserID    string
	Fields    map[string]any
}

var reservedRecordKeys = []string{"id", "createdAt", "userId"}

// RecordFields copies a caller payload without the keys owned by Record.
// It returns nil when nothing is left.
func RecordFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range reservedRecordKeys {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type recordHead struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+len(reservedRecordKeys))
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat["id"] = r.ID
	flat["createdAt"] = r.CreatedAt
	flat["userId"] = r.UserID
	return json.Marshal(flat)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var head recordHead
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*r = Record{ID: head.ID, CreatedAt: head.CreatedAt, UserID: head.UserID, Fields: RecordFields(flat)}
	return nil
}

// OutboxEntry is a simulated email.
type OutboxEntry struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Date      time.Time `json:"date"`
}

// Session is the persisted pointer to the authenticated user.
type Session struct {
	User      Profile   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
