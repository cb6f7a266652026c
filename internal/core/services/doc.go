// Package services implements the driving ports on top of the driven ones:
// ingestion, retrieval, grounding and answer streaming, plus the document,
// conversation, model and settings services around them.
//
// Nothing here imports an adapter.
package services
