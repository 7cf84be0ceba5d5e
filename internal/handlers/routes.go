package handlers

import (
	"context"
	"net/http"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Check: deps.HealthCheck}
	users := UserHandler{Accounts: deps.Accounts, Sessions: deps.Sessions, Limiter: deps.Limiter}
	applications := ApplicationHandler{Friends: deps.Friends, Limiter: deps.Limiter}
	friends := FriendHandler{Friends: deps.Friends}
	authenticated := RequireIdentity(deps.Sessions)

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.HandleFunc("POST /api/v1/users", users.Register)
	mux.HandleFunc("POST /api/v1/token", users.Token)
	mux.HandleFunc("POST /api/v1/token/refresh", users.Refresh)

	mux.Handle("POST /api/v1/applications/send", authenticated(http.HandlerFunc(applications.Send)))
	mux.Handle("GET /api/v1/applications/incoming", authenticated(http.HandlerFunc(applications.Incoming)))
	mux.Handle("GET /api/v1/applications/outgoing", authenticated(http.HandlerFunc(applications.Outgoing)))
	mux.Handle("PUT /api/v1/applications/{username}", authenticated(http.HandlerFunc(applications.Respond)))

	mux.Handle("GET /api/v1/friends", authenticated(http.HandlerFunc(friends.List)))
	mux.Handle("PUT /api/v1/friends/{username}", authenticated(http.HandlerFunc(friends.Unfriend)))
	mux.Handle("GET /api/v1/status/{username}", authenticated(http.HandlerFunc(friends.Status)))

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts AccountService
	Sessions SessionManager
	Friends  FriendService
	Limiter  RateLimiter
	Metrics  http.Handler

	HealthCheck func(ctx context.Context) error
}
