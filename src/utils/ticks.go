package utils

import (
	"context"
	"time"
)

/*
Ticks returns a channel that receives the current time right away and then once
per interval, until ctx is done. The channel is closed afterwards. Ticks that
nobody is waiting for are dropped rather than queued.
*/
func Ticks(ctx context.Context, interval time.Duration) <-chan time.Time {
	c := make(chan time.Time)
	go func() {
		defer close(c)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		next := time.Now()
		for {
			select {
			case c <- next:
			case <-ctx.Done():
				return
			}

			select {
			case next = <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return c
}
