package main

import (
	"net/http"
)

func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/healthcheck", app.healthCheckHandler)

	mux.HandleFunc("GET /api/v1/auth/{$}", app.listUsersHandler)
	mux.HandleFunc("POST /api/v1/auth/register", app.registerHandler)
	mux.HandleFunc("POST /api/v1/auth/login", app.loginHandler)
	mux.HandleFunc("POST /api/v1/auth/logout", app.logoutHandler)

	mux.HandleFunc("GET /api/v1/todos", app.requireAuth(app.listTasksHandler))
	mux.HandleFunc("GET /api/v1/todos/{$}", app.requireAuth(app.listTasksHandler))
	mux.HandleFunc("GET /api/v1/todos/user", app.requireAuth(app.listUserTasksHandler))
	mux.HandleFunc("POST /api/v1/todos", app.requireAuth(app.createTaskHandler))
	mux.HandleFunc("POST /api/v1/todos/{$}", app.requireAuth(app.createTaskHandler))
	mux.HandleFunc("PUT /api/v1/todos/{id}", app.requireAuth(app.updateTaskHandler))
	mux.HandleFunc("DELETE /api/v1/todos/{id}", app.requireAuth(app.deleteTaskHandler))

	var handler http.Handler = mux
	if app.config.limiter.enabled {
		handler = app.rateLimit(handler)
	}
	return recoverPanic(logRequest(app.enableCORS(handler)))
}
