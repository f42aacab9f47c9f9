// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

// ServiceOptions bundles the pluggable integration points of the
// service. Fields left nil are replaced with no-op defaults by
// DefaultOptions, so callers only set what they customize.
type ServiceOptions struct {
	// AuthProvider validates bearer tokens.
	// Default: NopAuthProvider (any token yields the local user).
	AuthProvider AuthProvider

	// AuditLogger records pseudonymized usage events.
	// Default: NopAuditLogger (events are discarded).
	AuditLogger AuditLogger
}

// DefaultOptions returns ServiceOptions with no-op implementations for
// every seam. This is the configuration of a plain local deployment.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
		AuditLogger:  &NopAuditLogger{},
	}
}

// WithAuth returns a copy of opts using the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAudit returns a copy of opts using the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}

// ApplyDefaults fills nil fields with the no-op implementations.
func (opts ServiceOptions) ApplyDefaults() ServiceOptions {
	if opts.AuthProvider == nil {
		opts.AuthProvider = &NopAuthProvider{}
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = &NopAuditLogger{}
	}
	return opts
}
