// Package calendar builds and runs the Google Calendar events query behind the
// slot list.
//
// BuildQuery is pure: given a slot configuration and the current time it
// computes the [start, end) window and the events.list parameters. Client
// executes a QuerySpec with a bearer token and returns the raw events in the
// order Google returned them (ascending start time).
//
// Example usage:
//
//	window, q := calendar.BuildQuery(cfg.Mutable, time.Now())
//	if window.Empty() {
//	    return nil
//	}
//	client := calendar.NewClient(calendar.ClientConfig{Timeout: 10 * time.Second})
//	events, err := client.ListEvents(ctx, token, q)
package calendar
