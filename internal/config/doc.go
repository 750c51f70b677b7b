// Package config provides configuration management for the inference service.
//
// Configuration is loaded from environment variables using the env package.
// MODEL_VERSION is read once at startup and is immutable afterwards. All
// other values have defaults suitable for local development, where events
// and prediction records live in memory and Redis is not required.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
