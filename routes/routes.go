package routes

// Package routes wires every HTTP route of the competitor scanner.
//
// Layout:
// - api.go: API routes (/v1/*)
// - web.go: Web routes (/, /docs, /status)
// - middleware.go: request logging, bearer auth, rate limiting
//
// Usage:
// routes.SetupAllRoutes(router, scanController, adminController, logger)
