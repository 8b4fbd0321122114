package review

import "sync"

// InFlight tracks the merge request iids currently under review. It is
// the only guard against two pipelines racing on the same merge request
// within one process.
type InFlight struct {
	mu  sync.Mutex
	ids map[int]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[int]struct{})}
}

// TryAcquire admits iid unless a review for it is already running.
func (f *InFlight) TryAcquire(iid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[iid]; ok {
		return false
	}
	f.ids[iid] = struct{}{}
	return true
}

// Release returns iid to the idle state. Safe to call for ids that were
// never acquired.
func (f *InFlight) Release(iid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, iid)
}
