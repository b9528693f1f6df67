package catalog

import "go.uber.org/fx"

// Module provides the catalog store to Fx.
var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(func(s *Store) Directory { return s }),
)
