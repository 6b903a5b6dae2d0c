// Package provider defines the contracts for external generation services
// and the Gateway that invokes them on behalf of the orchestrator.
//
// The Gateway maps one stage kind to one provider call, bounds it with the
// configured stage timeout, guarantees at most one in-flight call per
// (session, stage), and classifies failures with the services markers. It
// never touches session state.
package provider
