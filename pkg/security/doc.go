// Package security groups the transport and access controls of the audit
// API server.
//
//   - tls: HTTPS configuration with certificate reload and optional
//     mutual TLS
//   - auth: API key authentication for the /v1 routes
package security
