package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/service"
)

// StartAuditWorker wires the audit service into the dispatcher. Handlers
// run synchronously on the publishing goroutine; there is no queue to
// drain on shutdown.
func StartAuditWorker(auditService *service.AuditService, logger *zap.Logger) {
	if auditService == nil {
		logger.Warn("audit worker not started: no audit service")
		return
	}
	auditService.RegisterHandlers()
	logger.Info("audit worker registered")
}
