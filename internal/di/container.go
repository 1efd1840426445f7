// Package di provides dependency injection configuration for the ArtRiver server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/artriverapp/artriver-server/internal/config"
	"github.com/artriverapp/artriver-server/internal/di/providers"
	"github.com/artriverapp/artriver-server/internal/logger"
	"github.com/artriverapp/artriver-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideIndexingService)
	do.Provide(injector, providers.ProvideIndexHooks)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideAdminService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.IndexingService](injector)
	_ = do.MustInvoke[*service.IndexHooks](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*service.AdminService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Build the index in the background if it is empty but the source is not
	providers.TriggerIndexBuildIfNeeded(injector)

	return nil
}
