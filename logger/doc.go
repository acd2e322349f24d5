// Package logger provides structured logging for keel services built on
// zerolog. It exposes a Logger wrapper with component tagging, a global
// logger for packages without an injected instance, and a panic-safe
// Stringify helper for logging arbitrary payloads.
package logger
