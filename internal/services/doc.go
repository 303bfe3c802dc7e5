// Package services provides shared error classification and context
// propagation helpers used across pipeline stages and external tool
// clients.
package services
