// Package services holds the shared error taxonomy. Errors are tagged with a
// sentinel marker at the point of failure and classified once, at the top of
// the process, into an exit status.
package services
