package di

import (
	"tlsync/internal/providers"
	"tlsync/internal/structures"
	"tlsync/internal/syncer"
)

func provideSyncState(conf *structures.Config) *syncer.SyncState {
	return syncer.NewSyncState(conf.Sync.StateFile)
}

func provideCSVWriter(conf *structures.Config, logger providers.Logger) syncer.ExportWriterInterface {
	return syncer.NewCSVWriter(conf.Export.Dir, logger)
}
