package main

import (
	"go.uber.org/fx"

	"github.com/dinecore/dinecore/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
