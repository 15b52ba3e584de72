package worker

import (
	"sync"
)

// Task is one unit of background work, typically a single wallet
// scan.
type Task interface {
	Execute()
}

// Pool runs tasks on a resizable set of workers. The scan jobs fan
// out through it so one slow RPC call never stalls the whole sweep.
type Pool struct {
	mu    sync.Mutex
	size  int
	tasks chan Task
	kill  chan struct{}
	wg    sync.WaitGroup
}

// NewPool starts speed workers over a queue-sized task buffer.
func NewPool(speed int, queue int) *Pool {
	pool := &Pool{
		tasks: make(chan Task, queue),
		kill:  make(chan struct{}),
	}
	pool.Resize(speed)
	return pool
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.wg.Add(1)
			go task.Execute()
			p.wg.Done()
		case <-p.kill:
			return
		}
	}
}

// Resize grows or shrinks the worker set to n.
func (p *Pool) Resize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.size < n {
		p.size++
		p.wg.Add(1)
		go p.worker()
	}
	for p.size > n {
		p.size--
		p.kill <- struct{}{}
	}
}

func (p *Pool) Close() {
	close(p.tasks)
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

// Exec enqueues a task, blocking while the buffer is full.
func (p *Pool) Exec(task Task) {
	p.tasks <- task
}
