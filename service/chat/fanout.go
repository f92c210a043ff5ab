package chat

import (
	"sync"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout delivers one payload to many connections through a small
// worker pool. Each member is offered the payload independently; a
// client whose send queue is full is handed to onSlow (which
// disconnects it) instead of being allowed to stall the rest.
type Fanout struct {
	jobs     chan fanoutJob
	onSlow   func(*Client)
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewFanout(workers, queue int, onSlow func(*Client)) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{jobs: make(chan fanoutJob, queue), onSlow: onSlow}
	f.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer f.wg.Done()
			for job := range f.jobs {
				for _, c := range job.conns {
					if c.Enqueue(job.payload) {
						continue
					}
					if !c.Closed() && f.onSlow != nil {
						f.onSlow(c)
					}
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- fanoutJob{conns: conns, payload: payload}
}

// Close stops the workers after draining queued jobs.
func (f *Fanout) Close() {
	f.stopOnce.Do(func() { close(f.jobs) })
	f.wg.Wait()
}
