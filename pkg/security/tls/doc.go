// Package tls builds the HTTPS configuration of the audit API server.
//
// The server certificate is served through a Reloader, which re-reads the
// key pair when the files' modification times change. Renewed certificates
// therefore apply without a restart. Setting a client CA bundle turns on
// mutual TLS.
//
//	r, err := tls.NewReloader(cfg.CertFile, cfg.KeyFile)
//	if err != nil {
//		return err
//	}
//	go r.Run(ctx, cfg.ReloadInterval)
//	tlsConfig, err := tls.ServerConfig(cfg, r)
package tls
