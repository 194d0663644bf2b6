// Package health provides liveness and readiness probes.
//
// Liveness (/health by default) answers 200 whenever the process serves
// HTTP. Readiness (/ready by default) runs every registered check
// concurrently, each under its own timeout, and answers 503 when any
// fails:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("catalog", health.CatalogCheck(engine.Catalog))
//	checker.RegisterCheck("store", health.StoreCheck(store))
//	health.Register(mux, checker, "/health", "/ready", info)
package health
