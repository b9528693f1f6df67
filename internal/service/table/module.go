package table

import (
	"go.uber.org/fx"

	tablerepo "github.com/dinecore/dinecore/internal/repository/table"
)

// Module provides the table service to Fx.
var Module = fx.Provide(func(repo *tablerepo.Repository) *Service {
	return NewService(repo)
})
