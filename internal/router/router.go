package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/hiromu1018ks/official-car-app/internal/handler"
	"github.com/hiromu1018ks/official-car-app/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check, used by
// load balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterFleet registers the read-only fleet views.  These endpoints return
// sanitized data for guests and dashboards, so no JWT or role middleware is
// applied.  The caller may pass a response-cache middleware to put in front
// of the list and stats endpoints; pass nil to serve them uncached.
func RegisterFleet(e *echo.Echo, v *handler.VehicleHandler, r *handler.ReservationHandler, cache echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{}
	if cache != nil {
		mw = append(mw, cache)
	}
	// Vehicle list and the per-status breakdown are the hottest reads and
	// benefit most from caching.
	e.GET("/v1/vehicles", v.List, mw...)
	e.GET("/v1/vehicles/stats", v.Stats, mw...)
	// In-use detail and the upcoming reservation list change with every trip
	// start, so they are served fresh.
	e.GET("/v1/vehicles/in-use", v.InUse)
	e.GET("/v1/reservations", r.List)
	e.GET("/v1/driving-logs/stats", v.DrivingLogStats)
}

// RegisterReservations registers every endpoint that mutates reservations or
// driving logs.  All of them run behind the JWTAuth middleware so the
// handlers can attribute the write to the authenticated user.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler, t *handler.TripHandler, jwtSecret string) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.POST("/reservations", r.Create)
	auth.PUT("/reservations/:id", r.Update)
	auth.DELETE("/reservations/:id", r.Delete)
	auth.POST("/reservations/:id/cancel", r.Cancel)

	auth.POST("/trips/start", t.Start)
	auth.POST("/trips/end", t.End)
}
