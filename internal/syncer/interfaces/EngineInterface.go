package interfaces

import (
	"context"
	"tlsync/internal/models"
)

type EngineInterface interface {
	Run(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error)
	Status() models.EngineStatus
}
