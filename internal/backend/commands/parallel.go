package commands

import (
	"runtime"
	"sync"
)

// parallelRows calls fn for every row in [0, n), splitting the rows into
// contiguous bands with one goroutine per band.
func parallelRows(n int, fn func(y int)) {
	if n <= 0 {
		return
	}
	workers := min(runtime.GOMAXPROCS(0), n)
	band := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += band {
		end := min(start+band, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				fn(y)
			}
		}(start, end)
	}
	wg.Wait()
}
