// Package config handles loading and validating Identity Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (the refresh token secret) should be set via
//     environment variables, never committed in the config file
//   - The config file should have restricted permissions (0600)
//   - The RSA private key referenced by auth.private_key_path must be
//     generated per deployment and kept out of version control
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
