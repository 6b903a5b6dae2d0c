// Package selection holds the pure checks that gate a session's progress.
//
// Validate inspects the user's script, duration, and voice choices together
// with the credential state and reports every missing or invalid field at
// once. ValidateRegeneration enforces which stages may be redone from the
// review phase.
package selection
