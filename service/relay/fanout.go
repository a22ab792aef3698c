package relay

import (
	"PRelay/tools/safe"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout is a small worker pool that pushes one payload to many client
// send queues without letting a slow client stall the caller.
type Fanout struct {
	jobs chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 1
	}
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		safe.Go(func() {
			for job := range f.jobs {
				for _, c := range job.conns {
					// client queues are never closed, so a job that
					// snapshotted a since-disconnected client just
					// parks the payload in its abandoned queue
					select {
					case c.Send <- job.payload:
					default:
						// slow client: skip rather than block the pool
					}
				}
			}
		})
	}
	return f
}

func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- fanoutJob{conns: conns, payload: payload}
}

func (f *Fanout) Close() {
	close(f.jobs)
}
