package api

import (
	"context"

	"github.com/persistorai/revisor/internal/domain"
)

// DocumentService defines the document operations used by DocumentHandler.
type DocumentService = domain.DocumentService

// HistoryService defines the revision log queries used by HistoryHandler.
type HistoryService = domain.HistoryService

// HealthChecker reports storage reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
