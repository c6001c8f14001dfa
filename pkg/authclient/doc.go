// Package authclient keeps a Go client's view of its storefront session.
//
// A Coordinator owns one AuthSessionState: the cached principal, when it was
// last validated, and whether a renewal is running. Protected calls go
// through Coordinator.Do, which renews an expired access token at most once
// per burst of failures and retries each call at most once. Session cookies
// live in the Coordinator's cookie jar and are never read by callers.
//
// Listeners registered with Subscribe are told about every change to the
// cached principal, so independent parts of a program stay consistent
// without polling.
package authclient
