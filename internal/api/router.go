package api

import (
	"database/sql"
	"net/http"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/notify"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, notifier notify.Notifier) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	materialsHandler := &MaterialsHandler{DB: db}
	serialsHandler := &SerialsHandler{DB: db}
	eventsHandler := &EventsHandler{DB: db}
	allocationsHandler := &AllocationsHandler{DB: db, Notifier: notifier}
	returnsHandler := &ReturnsHandler{DB: db, Notifier: notifier}
	proofsHandler := &ProofsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Materials: read (all roles), write (manager+).
	mux.Handle("GET /api/materials", authMW(http.HandlerFunc(materialsHandler.List)))
	mux.Handle("POST /api/materials", authMW(requireManager(http.HandlerFunc(materialsHandler.Create))))
	mux.Handle("GET /api/materials/{id}", authMW(http.HandlerFunc(materialsHandler.Get)))
	mux.Handle("PUT /api/materials/{id}", authMW(requireManager(http.HandlerFunc(materialsHandler.Update))))
	mux.Handle("DELETE /api/materials/{id}", authMW(requireManager(http.HandlerFunc(materialsHandler.Delete))))
	mux.Handle("POST /api/materials/{id}/adjust", authMW(requireManager(http.HandlerFunc(materialsHandler.Adjust))))
	mux.Handle("POST /api/materials/{id}/restore", authMW(requireManager(http.HandlerFunc(materialsHandler.Restore))))
	mux.Handle("GET /api/materials/{id}/summary", authMW(http.HandlerFunc(materialsHandler.Summary)))
	mux.Handle("GET /api/materials/{id}/movements", authMW(http.HandlerFunc(materialsHandler.Movements)))

	// Serials: read (all roles), write (manager+).
	mux.Handle("GET /api/materials/{id}/serials", authMW(http.HandlerFunc(serialsHandler.List)))
	mux.Handle("POST /api/materials/{id}/serials", authMW(requireManager(http.HandlerFunc(serialsHandler.Create))))
	mux.Handle("GET /api/materials/{id}/serials/{number}", authMW(http.HandlerFunc(serialsHandler.Get)))
	mux.Handle("PUT /api/materials/{id}/serials/{number}", authMW(requireManager(http.HandlerFunc(serialsHandler.Update))))
	mux.Handle("DELETE /api/materials/{id}/serials/{number}", authMW(requireManager(http.HandlerFunc(serialsHandler.Delete))))

	// Events and checklists: read (all roles), write (manager+).
	mux.Handle("GET /api/events", authMW(http.HandlerFunc(eventsHandler.List)))
	mux.Handle("POST /api/events", authMW(requireManager(http.HandlerFunc(eventsHandler.Create))))
	mux.Handle("GET /api/events/{id}", authMW(http.HandlerFunc(eventsHandler.Get)))
	mux.Handle("GET /api/events/{id}/checklist", authMW(http.HandlerFunc(eventsHandler.Checklist)))
	mux.Handle("POST /api/events/{id}/checklist", authMW(requireManager(http.HandlerFunc(eventsHandler.AddLine))))
	mux.Handle("DELETE /api/events/{id}/checklist/{lineID}", authMW(requireManager(http.HandlerFunc(eventsHandler.DeleteLine))))
	mux.Handle("GET /api/events/{id}/pending-returns", authMW(http.HandlerFunc(eventsHandler.PendingReturns)))
	mux.Handle("GET /api/events/{id}/movements", authMW(http.HandlerFunc(eventsHandler.Movements)))

	// Allocations and returns (all roles: crew registers returns in the field).
	mux.Handle("POST /api/allocations", authMW(http.HandlerFunc(allocationsHandler.Create)))
	mux.Handle("GET /api/allocations", authMW(http.HandlerFunc(allocationsHandler.List)))
	mux.Handle("GET /api/allocations/{id}", authMW(http.HandlerFunc(allocationsHandler.Get)))
	mux.Handle("DELETE /api/allocations/{id}", authMW(http.HandlerFunc(allocationsHandler.Delete)))
	mux.Handle("POST /api/allocations/{id}/return", authMW(http.HandlerFunc(returnsHandler.Register)))
	mux.Handle("POST /api/returns/batch", authMW(http.HandlerFunc(returnsHandler.Batch)))

	// Proofs (all roles).
	mux.Handle("POST /api/proofs", authMW(http.HandlerFunc(proofsHandler.Upload)))
	mux.Handle("GET /api/proofs/{id}", authMW(http.HandlerFunc(proofsHandler.Get)))

	return mux
}
