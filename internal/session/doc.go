// Package session holds the credential state shared by every consumer of the
// authentication subsystem.
//
// Store is the single process-wide holder of the credential Record. It is
// backed by one named file slot so a restart resumes the latest state without
// re-authenticating (subject to token expiry). All writers supply full
// records; the auth manager is the only writer of successful credential
// state.
//
// ReturnURLStore is the companion ephemeral slot carrying the pre-redirect
// URL across one identity provider round trip.
package session
