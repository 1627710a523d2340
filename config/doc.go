// Package config loads the genomegate configuration.
//
// Configuration is an INI file whose path comes from the GQL_CONF
// environment variable or the -config flag. Each section maps onto a typed
// struct:
//
//	[GENERAL]   HTTP binding, query limits, xref registry and mapping files
//	[MONGO DB]  document store connection and default release database
//	[GRPC]      metadata service transport (grpc or nats)
//	[CACHE]     result cache backend and expiry
//	[LOADER]    batch loader wait window and batch size
//
// Missing keys take the values of DefaultConfig. Credentials may be
// supplied through GENOMEGATE_* environment variables instead of the file.
//
//	cfg, err := config.NewLoader().Load()
//	if err != nil {
//		return err
//	}
//
// ReadVersion reads the separate version_config.ini file served by the
// version query field.
package config
