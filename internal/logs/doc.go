// Package logs reads reelforge logs for the CLI.
//
// StreamClient polls the daemon's /api/logs endpoint, which carries the
// structured events held by the daemon's in-memory hub. When no daemon is
// reachable, Tail reads the log file directly and can keep following it.
package logs
