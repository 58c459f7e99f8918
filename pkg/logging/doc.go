// Package logging provides a thin, subsystem-tagged wrapper around log/slog.
//
// Components log through package-level functions with a subsystem label so
// related entries can be filtered together:
//
//	logging.Debug("Auth", "exchanging authorization code (attempt %d)", attempt)
//	logging.Warn("Session", "persisted record unreadable, starting empty: %v", err)
//
// Init must be called once at startup with the desired minimum level. Calls
// made before Init are dropped.
package logging
