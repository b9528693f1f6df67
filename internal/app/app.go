package app

import (
	"go.uber.org/fx"

	"github.com/dinecore/dinecore/internal/cache"
	"github.com/dinecore/dinecore/internal/catalog"
	"github.com/dinecore/dinecore/internal/config"
	"github.com/dinecore/dinecore/internal/database"
	"github.com/dinecore/dinecore/internal/logger"
	"github.com/dinecore/dinecore/internal/messaging"
	"github.com/dinecore/dinecore/internal/observability"
	repositoryorder "github.com/dinecore/dinecore/internal/repository/order"
	repositorytable "github.com/dinecore/dinecore/internal/repository/table"
	httpserver "github.com/dinecore/dinecore/internal/server/http"
	servicecancellation "github.com/dinecore/dinecore/internal/service/cancellation"
	serviceorder "github.com/dinecore/dinecore/internal/service/order"
	servicesettlement "github.com/dinecore/dinecore/internal/service/settlement"
	servicetable "github.com/dinecore/dinecore/internal/service/table"
	transporthttp "github.com/dinecore/dinecore/internal/transport/http"
	"github.com/dinecore/dinecore/internal/worker"
	workertablerelease "github.com/dinecore/dinecore/internal/worker/tablerelease"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	repositorytable.Module,
	catalog.Module,
	serviceorder.Module,
	servicesettlement.Module,
	servicecancellation.Module,
	servicetable.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workertablerelease.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
