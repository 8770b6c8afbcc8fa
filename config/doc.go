// Package config handles loading and parsing of engine configuration from
// YAML files and environment variables. It defines the circuit breaker,
// backoff, processor-timeout, and logging tunables read at startup.
package config
