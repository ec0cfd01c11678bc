package analysis

import (
	"context"
	"sync"
)

// forEach runs fn for every index in [0,n) on up to workers goroutines and
// returns once every index has been handled. Indices not yet started when
// ctx is cancelled are passed to skip instead of fn. done is called from
// the calling goroutine after each index completes.
func forEach(ctx context.Context, workers, n int, fn, skip func(i int), done func(completed int)) {
	if n == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	finished := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					skip(i)
				} else {
					fn(i)
				}
				finished <- i
			}
		}()
	}

	go func() {
		for i := 0; i < n; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(finished)
	}()

	completed := 0
	for range finished {
		completed++
		if done != nil {
			done(completed)
		}
	}
}
