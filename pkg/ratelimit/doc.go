// Package ratelimit paces requests against Pixiv.
//
// Pixiv enforces informal rate limits, so every list page and every
// visibility change is followed by a fixed delay. The delay is taken through
// a Clock so the enumerator, mutator and UI automation can be tested with a
// FakeClock that records sleeps instead of performing them.
//
//	pacer := ratelimit.NewPacer(ratelimit.RealClock{}, 250*time.Millisecond)
//	for _, id := range ids {
//	    change(id)
//	    if err := pacer.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
