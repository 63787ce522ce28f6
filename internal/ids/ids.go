// Package ids generates identifiers for users, records and one-time tokens.
package ids

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gofrs/uuid/v5"
	"github.com/segmentio/ksuid"
)

// NewUserID returns a globally unique user id. KSUIDs combine a timestamp
// with 128 random bits, so ids sort by creation time and never repeat.
func NewUserID() string {
	return "user-" + ksuid.New().String()
}

// NewToken returns a random verification or reset token.
func NewToken() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// RecordIDs hands out monotonically increasing record ids.
type RecordIDs struct {
	node *snowflake.Node
}

// NewRecordIDs builds a generator for the given snowflake node (0..1023).
func NewRecordIDs(nodeID int64) (*RecordIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &RecordIDs{node: node}, nil
}

// Next returns a fresh record id.
func (g *RecordIDs) Next() string {
	return "record-" + g.node.Generate().String()
}
