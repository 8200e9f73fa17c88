// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the parts of the time package the router
// loop depends on, so poll-interval behaviour can be tested without
// sleeping.
//
// Production code holds a [Clock] and uses [Real]. Tests use [Fake],
// which only moves when [FakeClock.Advance] is called:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go worker.Run(ctx)        // worker waits on fake.After(interval)
//	fake.WaitForTimers(1)     // the wait is registered
//	fake.Advance(interval)    // ... and now it fires
//
// WaitForTimers closes the race between a goroutine registering its
// timer and the test advancing time.
package clock
