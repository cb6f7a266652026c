// Package driving holds the use cases the CLI, HTTP, MCP, TUI and watch
// adapters call: ingest and manage documents, ask questions, browse
// conversations, pick models and change settings. internal/core/services
// implements them.
package driving
