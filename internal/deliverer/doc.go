// Package deliverer dispatches a completed digest to its listener according
// to their configured delivery method: regenerating a syndication feed,
// sending a best-effort push/email notification, or doing nothing for
// in-app delivery (the Digest row is already queryable).
package deliverer
