// Package orchestrator owns sessions and drives them through the staged
// generation workflow.
//
// Sessions move configuring → generating_content → reviewing_content →
// finalizing → complete, with failed reachable from the two executing
// phases. Generating runs audio, images, and thumbnail strictly in order;
// review allows images to be regenerated; finalizing assembles the video
// from the latest upstream versions. A complete session can be published.
// Control operations on one session are
// serialized and each owns a cancel function so Cancel and Destroy can stop
// in-flight provider calls.
//
// Collaborators never see the live Session: Snapshot, List, events, and
// subscriber callbacks all carry deep copies.
package orchestrator
