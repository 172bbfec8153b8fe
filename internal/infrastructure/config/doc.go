// Package config handles loading and validating heinzelmann configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with a .env file and HEINZELMANN_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Broker credentials and the InfluxDB token should be set via environment
// variables rather than the config file.
//
// Usage:
//
//	cfg, err := config.Load(config.ResolvePath(flagPath))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.REPL.Addr())
package config
