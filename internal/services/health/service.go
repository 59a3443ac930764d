package health

import (
	"context"
	"time"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Report is the health payload.
type Report struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
}

// Service encapsulates health-related checks.
type Service struct {
	db      Pinger
	timeout time.Duration
}

// NewService constructs a new health service. A nil db reports the record
// store as in-memory.
func NewService(db Pinger) *Service {
	return &Service{db: db, timeout: defaultPingTimeout}
}

// Status pings the record store, if any.
func (s *Service) Status(ctx context.Context) Report {
	if s == nil || s.db == nil {
		return Report{OK: true, Database: "memory"}
	}
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return Report{OK: false, Database: "unreachable"}
	}
	return Report{OK: true, Database: "ok"}
}
