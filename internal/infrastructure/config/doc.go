// Package config handles loading and validating telegramd configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (TELEGRAMD_*)
//   - Validation of required fields, collecting every problem
//   - Default value handling
//
// Transports name the telegram sources; devices bind addresses to
// profiles. Family-specific parsing of addresses and profile keys happens
// when the gateway builds its bindings.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - String and MarshalJSON redact secrets
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Gateway.ID)
package config
