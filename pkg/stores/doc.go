// Package stores provides the install ledger: a SQLite database recording
// every install attempt and its events. The ledger is diagnostic; the
// presence of a module file on disk remains the installed-state signal.
package stores
