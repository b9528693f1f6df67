package settlement

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dinecore/dinecore/internal/cache"
	"github.com/dinecore/dinecore/internal/catalog"
	"github.com/dinecore/dinecore/internal/config"
	"github.com/dinecore/dinecore/internal/messaging"
	orderrepo "github.com/dinecore/dinecore/internal/repository/order"
	tablerepo "github.com/dinecore/dinecore/internal/repository/table"
)

type moduleParams struct {
	fx.In

	Orders    *orderrepo.Repository
	Tables    *tablerepo.Repository
	Catalog   catalog.Directory
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// Module provides the settlement service to Fx.
var Module = fx.Provide(func(p moduleParams) *Service {
	return NewService(Params{
		Orders:        p.Orders,
		Tables:        p.Tables,
		Catalog:       p.Catalog,
		Cache:         p.Cache,
		Logger:        p.Logger,
		Publisher:     p.Publisher,
		PublishEvents: p.Config.Messaging.Enabled,
	})
})
