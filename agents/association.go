package agents

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/pathomove/network"
)

// parallelThreshold is the minimum query count to fan neighbour queries out to workers.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// neighbourLists returns, for each agent in ids, its neighbours within r.
// Queries only read the index, so they are split across workers; the caller
// applies any mutations serially.
func (p *Population) neighbourLists(ids []int, r float32) [][]int {
	lists := make([][]int, len(ids))

	query := func(start, end int) {
		for k := start; k < end; k++ {
			i := ids[k]
			lists[k] = p.index.QueryRadius(nil, p.X[i], p.Y[i], r, i)
		}
	}

	workers := p.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if len(ids) < parallelThreshold || workers == 1 {
		query(0, len(ids))
		return lists
	}

	chunk := (len(ids) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			query(start, end)
		}(start, end)
	}
	wg.Wait()

	return lists
}

// CountAssoc records every pair of agents within rangeAssoc of each other as
// one association: the pair's counter in net is incremented, both agents'
// association counts go up, and their degree goes up on the pair's first contact.
func (p *Population) CountAssoc(net *network.Network, rangeAssoc float32) error {
	if net.N() != p.n {
		return invalidf("network has %d vertices, population has %d agents", net.N(), p.n)
	}
	if rangeAssoc < 0 {
		return invalidf("association range %v", rangeAssoc)
	}

	ids := make([]int, p.n)
	for i := range ids {
		ids[i] = i
	}

	for i, nbrs := range p.neighbourLists(ids, rangeAssoc) {
		for _, j := range nbrs {
			if j <= i {
				continue
			}
			count := net.Add(i, j)
			p.Associations[i]++
			p.Associations[j]++
			if count == 1 {
				p.Degree[i]++
				p.Degree[j]++
			}
		}
	}
	return nil
}
