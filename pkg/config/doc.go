/*
Package config loads and validates the supervisor configuration.

Configuration is a single YAML file decoded into a typed record with
every default explicit; unknown keys are rejected. Values support
environment substitution with ${VAR} (required) and ${VAR:default}
(optional), so secrets can be injected at runtime. When the graph
password is absent from the file entirely, the GRAPH_PASSWORD
environment variable is consulted before validation fails.
*/
package config
