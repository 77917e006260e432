// Package stream provides the push-based streams that carry actions and state
// through a redogs store.
//
// A Stream delivers Next notifications to an Observer until it terminates with
// Error or Complete, or until the Subscription is cancelled. Delivery is
// synchronous on the publishing goroutine and serialized per subscriber: an
// observer is never called concurrently, and a notification raised while that
// observer is already running is queued and delivered once it returns.
//
// Two hot sources are provided:
//
//   - Subject: multicast to every current subscriber, no memory of the past.
//   - Replay: like Subject, but remembers the latest value and hands it to each
//     new subscriber at subscription time.
//
// Cold sources and operators (New, Of, Never, Empty, Go, After, Filter, Map,
// MergeMap, Merge) are enough to write effects:
//
//	fetch := stream.MergeMap(
//	    stream.Filter(actions, func(a action.Action) bool { return a.Type == "FETCH" }),
//	    func(action.Action) stream.Stream[action.Action] {
//	        return stream.Go(func(ctx context.Context) (action.Action, error) {
//	            return load(ctx)
//	        })
//	    },
//	)
//
// Cancelling a subscription cancels the context passed to Go producers and
// runs the teardown returned by New producers.
package stream
