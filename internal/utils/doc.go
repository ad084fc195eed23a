// Package utils exposes reusable helpers consumed by the gitp commands.
//
// ConfigurationLoader layers embedded defaults, config.yaml, GITP_* environment
// variables, and command-line flags through Viper. LoggerFactory builds the zap
// diagnostics logger, and CommandContextAccessor carries per-invocation values
// such as the entry-point root through cobra command contexts.
package utils
