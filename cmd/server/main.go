package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"sparked/internal/app"
)

// @title SparkEd API
// @version 1.0
// @description Registration, email verification and login for SparkEd.
// @host localhost:8080
// @BasePath /
// @schemes http https
func main() {
	fx.New(
		app.Module(),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	).Run()
}
