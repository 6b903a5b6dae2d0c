// Command reelforge drives video generation sessions from the terminal.
//
// Session commands open the SQLite store directly and run each operation in
// process: the per-session lock is taken first and held for the duration of
// the command, the session is then reloaded from the store, and Ctrl-C cancels the running stage
// instead of killing the process. The status and logs commands talk to a
// running reelforged over HTTP.
package main
