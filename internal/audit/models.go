package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Action names a record lifecycle event.
type Action string

const (
	ActionRecordCreated Action = "record_created"
	ActionRecordUpdated Action = "record_updated"
	ActionRecordDeleted Action = "record_deleted"
)

// Event is emitted from the directory service to capture mutations. It is
// transport-agnostic so stores and sinks can fan out.
//
// RecordIDHash is the SHA-256 of the national identifier. The raw identifier
// never leaves the process through the audit trail.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	RecordIDHash string    `json:"record_id_hash"`
	Fields       []string  `json:"fields,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	ClientIP     string    `json:"client_ip,omitempty"`
}

// HashRecordID returns the hex SHA-256 of a national identifier.
func HashRecordID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
