package client

import (
	"sync"
	"time"
)

type queueState int

const (
	queueIdle queueState = iota
	queueDraining
)

type retryResult struct {
	resp *Response
	err  error
}

type retryJob struct {
	attempt  func() (*Response, error)
	cooldown time.Duration
	resultCh chan retryResult
}

// retryQueue serializes throttle replays for one endpoint key. Any number
// of producers may enqueue concurrently; exactly one drain loop consumes,
// sleeping each job's cooldown before executing it, so replays trickle
// out instead of re-bursting.
type retryQueue struct {
	mu    sync.Mutex
	state queueState
	jobs  []*retryJob
}

func newRetryQueue() *retryQueue {
	return &retryQueue{state: queueIdle}
}

// run enqueues one replay and blocks until the drain loop has executed it.
func (q *retryQueue) run(attempt func() (*Response, error), cooldown time.Duration) (*Response, error) {
	job := &retryJob{
		attempt:  attempt,
		cooldown: cooldown,
		resultCh: make(chan retryResult, 1),
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	if q.state == queueIdle {
		q.state = queueDraining
		go q.drain()
	}
	q.mu.Unlock()

	result := <-job.resultCh
	return result.resp, result.err
}

func (q *retryQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.state = queueIdle
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		time.Sleep(job.cooldown)
		resp, err := job.attempt()
		job.resultCh <- retryResult{resp: resp, err: err}
	}
}
