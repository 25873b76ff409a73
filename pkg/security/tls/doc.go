// Package tls provides server TLS for the relay: a minimum protocol
// version from configuration and a certificate that reloads from disk when
// renewed.
//
//	tlsConfig, err := tls.ServerConfig(ctx, cfg.Security.TLS)
//	if err != nil {
//	    return err
//	}
//	httpServer.TLSConfig = tlsConfig
//	httpServer.ListenAndServeTLS("", "")
package tls
