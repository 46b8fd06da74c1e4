package worker

import (
	"context"
	"time"

	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/pkg/logger"
)

// LoginCodeCleanupWorker purges expired login codes so the table doesn't
// accumulate dead rows.
type LoginCodeCleanupWorker struct {
	codeRepo repository.LoginCodeRepository
	interval time.Duration
	logger   *logger.Logger
}

func NewLoginCodeCleanupWorker(codeRepo repository.LoginCodeRepository, interval time.Duration, log *logger.Logger) *LoginCodeCleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &LoginCodeCleanupWorker{codeRepo: codeRepo, interval: interval, logger: log}
}

func (w *LoginCodeCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := w.codeRepo.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				w.logger.Error(err, "cleanup login codes")
				continue
			}
			if deleted > 0 {
				w.logger.Info("expired login codes removed", "count", deleted)
			}
		}
	}
}
