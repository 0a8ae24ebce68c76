package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/itszoriel/munlink-sub001/pkg/application"
	"github.com/itszoriel/munlink-sub001/pkg/configuration"
	"github.com/itszoriel/munlink-sub001/pkg/constants"
	"github.com/itszoriel/munlink-sub001/pkg/middleware"
	"github.com/itszoriel/munlink-sub001/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default assembles the HTTP server with the standard middleware stack:
// request logging opens the root span, then the app and pool are provided
// to every request context so repositories can run without explicit wiring.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),
	}
	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app), nil
}
