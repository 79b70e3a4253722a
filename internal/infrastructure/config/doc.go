// Package config handles loading and validating btaudiod configuration.
//
// Configuration is read from a YAML file, with defaults for every field
// and environment variable overrides (BTAUDIOD_SECTION_KEY) applied last.
// Validation runs after all three layers, so a bad override is caught the
// same way a bad file value is.
package config
