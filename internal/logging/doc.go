// Package logging holds slotproxy's slog conventions: the handler built at
// startup and the attribute helpers every package logs through.
//
//	logger := logging.WithOperation(slog.Default(), "slots.list")
//	logger.Warn("upstream failed", logging.Calendar(calendarID), logging.Err(err))
//
// Calendar IDs are hashed and tokens reduced to their length before they
// reach a handler.
package logging
