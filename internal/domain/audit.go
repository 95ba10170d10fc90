package domain

import "time"

// AuditOutcome is the result class of an audited operation
type AuditOutcome string

const (
	AuditOK     AuditOutcome = "ok"
	AuditFailed AuditOutcome = "failed"
)

// AuditEntry records one gateway or CLI operation. Secrets are never stored.
type AuditEntry struct {
	ID         string       `json:"id"`
	RequestID  string       `json:"request_id,omitempty"`
	AccountID  string       `json:"account_id"`
	Operation  string       `json:"operation"`
	Bucket     string       `json:"bucket,omitempty"`
	Key        string       `json:"key,omitempty"`
	Outcome    AuditOutcome `json:"outcome"`
	ErrorKind  string       `json:"error_kind,omitempty"`
	Message    string       `json:"message,omitempty"`
	DurationMS int64        `json:"duration_ms"`
	CreatedAt  time.Time    `json:"created_at"`
}
