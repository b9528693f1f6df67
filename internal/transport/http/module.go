package http

import (
	"go.uber.org/fx"

	cashiertransport "github.com/dinecore/dinecore/internal/transport/http/cashier"
	kitchentransport "github.com/dinecore/dinecore/internal/transport/http/kitchen"
	ordertransport "github.com/dinecore/dinecore/internal/transport/http/order"
	tabletransport "github.com/dinecore/dinecore/internal/transport/http/table"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	kitchentransport.Module,
	cashiertransport.Module,
	tabletransport.Module,
)
