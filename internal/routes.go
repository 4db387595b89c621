package internal

import (
	"net/http"
	"tlsync/internal/controllers"
	"tlsync/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/sync", http.HandlerFunc(apiController.TriggerSync))
	routers.Get("/status", http.HandlerFunc(apiController.Status))
	routers.Get("/exports", http.HandlerFunc(apiController.ListExports))
	routers.Get("/export", http.HandlerFunc(apiController.DownloadExport))
	routers.Get("/source/check", http.HandlerFunc(apiController.CheckSource))
	routers.Post("/auth/start", http.HandlerFunc(apiController.StartAuth))
	routers.Post("/auth/complete", http.HandlerFunc(apiController.CompleteAuth))
	return routers
}
