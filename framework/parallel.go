package framework

import (
	"golang.org/x/sync/errgroup"
)

// Group is a named top-level group of tests that can run concurrently with
// other groups.
type Group struct {
	Name   string
	Action func(*Context)
}

// RunParallel executes the groups with at most concurrency of them running at
// once (0 or 1 means sequential). Each group runs on its own goroutine with
// its own Context tree, so resources scoped to a group's tests never cross
// goroutines. Results are merged in the order the groups were given,
// regardless of completion order.
func RunParallel(filter Filter, testLogger TestLogger, concurrency int, groups []Group) Results {
	if concurrency <= 1 {
		return Run(filter, testLogger, func(c *Context) {
			for _, g := range groups {
				c.Run(g.Name, g.Action)
			}
		})
	}

	groupResults := make([]Results, len(groups))
	var eg errgroup.Group
	eg.SetLimit(concurrency)
	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			groupResults[i] = Run(filter, testLogger, func(c *Context) {
				c.Run(g.Name, g.Action)
			})
			return nil
		})
	}
	_ = eg.Wait()

	var merged Results
	for _, r := range groupResults {
		merged.Append(r)
	}
	return merged
}
