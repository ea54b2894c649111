// Package remote looks up packages published on the remote package manager's
// channels.
//
// Two lookups are offered and both are best effort. Versions runs the
// package manager's search command and returns the channel and the version
// list. Describe scrapes the package overview page for a one-line description
// and a homepage. Each lookup is retried a bounded number of times with a
// fixed delay between attempts.
package remote
