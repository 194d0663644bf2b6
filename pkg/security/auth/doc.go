// Package auth provides API key authentication for the audit HTTP API.
//
// A KeySet is built from the server.auth.keys configuration. Disabled keys
// are skipped. Keys are held as SHA-256 digests and compared in constant
// time.
//
// Clients send the key in either header:
//
//	Authorization: Bearer <key>
//	X-API-Key: <key>
//
// Query parameters are not accepted because URLs end up in access logs.
//
// # Usage
//
//	keys := auth.NewKeySet(cfg.Server.Auth.Keys)
//	handler = auth.Middleware(keys)(handler)
//
// Handlers read the caller with PrincipalFromContext.
package auth
