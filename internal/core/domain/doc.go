// Package domain holds the entities every other package speaks in:
// documents and their chunks, the sources cited for an answer, conversations
// and their messages, the events of a streamed answer, settings and the
// sentinel errors adapters map to exit codes and HTTP statuses.
//
// It imports the standard library only.
package domain
