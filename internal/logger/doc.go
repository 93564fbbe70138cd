// Package logger wraps zap with a global sugared logger and context helpers.
//
// Every step of the packager takes a context and logs through the logger it
// carries, so component names and key-value pairs attached with WithName and
// WithKV show up on every line. Output goes to stderr.
package logger
