// Package preflight provides readiness checks for the directories,
// credentials, database, and providers reelforge depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failing check.
//   - The CLI "reelforge doctor" command renders the same results as a table.
package preflight
