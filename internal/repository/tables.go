package repository

import (
	"github.com/and161185/medrec/internal/model"
	"github.com/and161185/medrec/internal/storage"
)

// Storage keys of the identity tables.
const (
	KeyCredentials = "medrec_users"
	KeyProfiles    = "medrec_all_users"
	KeyRecords     = "medrec_records"
	KeyOutbox      = "medrec_emails"
	KeySession     = "medrec_user"
)

// Tables groups every table the identity store owns.
type Tables struct {
	// Credentials maps email to credential.
	Credentials *Table[model.Credential]
	// Profiles maps user id to profile.
	Profiles *Table[model.Profile]
	// Records maps user id to that user's records in insertion order.
	Records *Table[[]model.Record]
	// Outbox maps recipient email to simulated emails.
	Outbox *Table[[]model.OutboxEntry]
	// Session is the persisted current session.
	Session *Doc[model.Session]
}

// NewTables binds all tables to kv.
func NewTables(kv storage.KV) *Tables {
	return &Tables{
		Credentials: NewTable[model.Credential](kv, KeyCredentials),
		Profiles:    NewTable[model.Profile](kv, KeyProfiles),
		Records:     NewTable[[]model.Record](kv, KeyRecords),
		Outbox:      NewTable[[]model.OutboxEntry](kv, KeyOutbox),
		Session:     NewDoc[model.Session](kv, KeySession),
	}
}
