//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"tlsync/internal"
	"tlsync/internal/controllers"
	"tlsync/internal/providers"
	"tlsync/internal/structures"
	"tlsync/internal/syncer"
	"tlsync/internal/trakt"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,

		trakt.NewTokenStore,
		wire.Bind(new(trakt.CredentialSource), new(*trakt.TokenStore)),
		wire.Bind(new(syncer.CredentialSource), new(*trakt.TokenStore)),
		trakt.NewDeviceAuth,
		trakt.NewClient,
		wire.Bind(new(syncer.Source), new(*trakt.Client)),
		wire.Bind(new(controllers.SourceChecker), new(*trakt.Client)),

		syncer.NewZstdCompressor,
		provideSyncState,
		provideCSVWriter,
		syncer.NewExportManager,
		wire.Bind(new(syncer.ExportsInterface), new(*syncer.ExportManager)),
		syncer.NewEngine,
		syncer.NewScheduler,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
