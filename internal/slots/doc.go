// Package slots turns calendar events into bookable time-slot choices.
//
// Service runs one slot request end to end:
//
//	signing -> exchanging -> querying -> projecting -> responded
//
// Any failure ends the flow with a *FlowError naming the stage; there are no
// retries. An empty query window short-circuits to an empty result without
// calling Google.
//
// Projector maps raw events to Choice values. Events without a usable start
// are skipped so one bad item never fails the batch. Labels are rendered by a
// Formatter using locale data from go-playground/locales.
package slots
