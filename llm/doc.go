// Package llm is the reply generation stage. It normalizes the requested
// language, folds trailing session context into a prompt prefix, and
// delegates to a pluggable model backend.
package llm
