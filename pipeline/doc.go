// Package pipeline assembles the keel request-handling chain in its fixed,
// order-significant sequence: identification stamping, security headers,
// CORS, body limits, user middleware, static assets, user routes, the
// single-page-app catch-all, and the terminal error boundary.
package pipeline
