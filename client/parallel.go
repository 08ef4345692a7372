package client

import "sync"

// parallelResults is the fixed-size result array a CallMany fan-out
// collects into: size is the number of calls still expected to complete,
// count is how many have, and values is positionally indexed by the
// caller's original request order. A submit-time failure decrements size
// directly, without ever touching count, so the wait still terminates
// when every call that actually started has finished.
type parallelResults struct {
	mu     sync.Mutex
	cond   *sync.Cond
	size   int
	count  int
	values [][]byte
}

func newParallelResults(n int) *parallelResults {
	r := &parallelResults{size: n, values: make([][]byte, n)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// callComplete stores value at index (nil on failure) and advances count,
// waking wait once every expected call has finished.
func (r *parallelResults) callComplete(index int, value []byte) {
	r.mu.Lock()
	r.values[index] = value
	r.count++
	if r.count >= r.size {
		r.cond.Broadcast()
	}
	r.mu.Unlock()
}

// abandon drops one expected completion, used only when a call fails
// before it is ever registered with a connection (acquire failure). A call
// that registered but failed afterwards is completed through callComplete
// by the connection's cleanup instead.
func (r *parallelResults) abandon() {
	r.mu.Lock()
	r.size--
	if r.count >= r.size {
		r.cond.Broadcast()
	}
	r.mu.Unlock()
}

// wait blocks until every still-expected call has completed and returns
// the positionally indexed results.
func (r *parallelResults) wait() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.count < r.size {
		r.cond.Wait()
	}
	return r.values
}

// parallelCall implements callslot.Completable by routing its outcome into
// a shared parallelResults instead of an individually awaited slot. A
// remote or transport failure is represented as a nil value at its index,
// matching the fan-out's never-raise contract; the failure itself is only
// logged, never propagated to the caller.
type parallelCall struct {
	index   int
	results *parallelResults
}

func newParallelCall(index int, results *parallelResults) *parallelCall {
	return &parallelCall{index: index, results: results}
}

func (p *parallelCall) CompleteValue(payload []byte) {
	p.results.callComplete(p.index, payload)
}

func (p *parallelCall) CompleteError(err error) {
	log.Debugf("parallel call %d failed: %v", p.index, err)
	p.results.callComplete(p.index, nil)
}
