// Package local implements the provider contracts without any network access.
//
// The outputs are real, decodable payloads (a silent PCM WAV, solid-colour
// PNG frames, a JSON assembly manifest) derived deterministically from the
// inputs, which lets the daemon, the CLI, and tests drive complete sessions
// offline. Publishing copies files into a local directory.
package local
