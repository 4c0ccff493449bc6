// Package database provides MongoDB connection management, configuration
// loading, command logging, health checks, error classification and the
// wiring of the sequence allocator backend.
package database
