package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/markusressel/controlbox/internal/box"
)

type RestService struct {
	snapshots *box.SnapshotCache
	executor  Executor
}

// CreateRestService creates the echo server of the REST api. Reads are
// served from the snapshot cache, changes are executed by the control loop.
func CreateRestService(snapshots *box.SnapshotCache, executor Executor, registry *prometheus.Registry) *echo.Echo {
	service := &RestService{
		snapshots: snapshots,
		executor:  executor,
	}

	echoRest := echo.New()
	echoRest.HideBanner = true
	echoRest.HidePort = true

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())
	echoRest.Use(middleware.Recover())
	echoRest.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "api",
		Registerer: registry,
	}))

	echoRest.GET("/alive/", isAlive)
	echoRest.GET("/metrics/", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: registry,
	}))

	service.registerObjectEndpoints(echoRest)
	service.registerCommandEndpoints(echoRest)

	return echoRest
}
