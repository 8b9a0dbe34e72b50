package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storefront-labs/aegis/logging"
)

// Recorder accepts decision entries. Recording never blocks or fails the
// decision path.
type Recorder interface {
	Record(entry Entry)
}

// Service buffers entries and persists them on a background goroutine.
// When the buffer is full the entry is dropped with a warning: audit is
// an observability concern, not part of the decision contract.
type Service struct {
	repo    Repository
	entries chan Entry
}

// NewService creates an audit service over the given repository.
func NewService(repo Repository) *Service {
	return &Service{
		repo:    repo,
		entries: make(chan Entry, 256),
	}
}

// Record enqueues the entry without blocking.
func (s *Service) Record(entry Entry) {
	select {
	case s.entries <- entry:
	default:
		logging.Warn("audit buffer full, dropping entry",
			zap.String("userID", entry.UserID),
			zap.String("resource", entry.Resource),
			zap.String("action", entry.Action))
	}
}

// Start drains the buffer until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case entry := <-s.entries:
				if err := s.repo.Save(ctx, entry); err != nil {
					logging.Error("failed to persist audit entry",
						zap.Error(err),
						zap.String("userID", entry.UserID))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Query proxies to the repository.
func (s *Service) Query(ctx context.Context, from, to time.Time, userID, resource string) ([]Entry, error) {
	return s.repo.Query(ctx, from, to, userID, resource)
}
