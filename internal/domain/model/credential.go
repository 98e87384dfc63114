package model

import "time"

// Credential is a stored secret for an external service, identified by a
// service name (e.g. "backend/token", "github/token").
type Credential struct {
	ID        int64
	Service   string
	Value     string
	UpdatedAt time.Time
}
