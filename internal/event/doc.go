// Package event provides a small synchronous publish/subscribe bus.
//
// Topics are dot-separated ("console.version.saved"). Subscriptions use
// patterns where "*" matches exactly one segment and "**" matches zero or
// more segments:
//
//	bus := event.NewBus()
//	sub, _ := bus.Subscribe("console.preview.*", func(ctx context.Context, ev event.Event) error {
//	    log.Printf("%s on %s", ev.Topic, ev.Metadata.Source)
//	    return nil
//	})
//	defer bus.Unsubscribe(sub)
//
// Handlers run in the publisher's goroutine in priority order. A handler
// that panics or returns an error does not stop delivery to the others.
package event
