// Package driven lists what the core needs from infrastructure: a chunker,
// an embedding model, a vector index, a generation model and stores for
// documents, conversations and configuration.
//
// PromptStore and TokenCounter may be nil. Without them the built-in prompts
// are used and no prompt token budget is enforced.
//
// The package imports domain and nothing else from this module.
package driven
