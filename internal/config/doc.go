// Package config loads docsync configuration.
//
// Sources, lowest precedence first:
//  1. built-in defaults (Default)
//  2. a dotenv file, merged into the process environment
//  3. DOCSYNC_* environment variables, mapped through the env struct tags
//  4. explicit command-line flags (Options.Overrides)
//
// OPENAI_API_KEY and JINA_API_KEY are honored when embed.api_key is unset.
// Every validation failure is reported in a single *ConfigurationError.
package config
