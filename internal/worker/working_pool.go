package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Job is one unit of pipeline work executed by the pool.
type Job func(ctx context.Context) error

// WorkingPool runs submitted pipeline jobs across a fixed set of worker
// goroutines. Runs triggered over HTTP are queued here so request handlers
// return immediately.
type WorkingPool struct {
	NumWorkers int
	jobChan    chan Job
}

func NewWorkingPool(numWorkers int, queueSize int) *WorkingPool {
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
	}
}

// SubmitJob queues a job, failing fast when the queue is full.
func (p *WorkingPool) SubmitJob(job Job) error {
	select {
	case p.jobChan <- job:
		return nil
	default:
		return fmt.Errorf("job queue is full (%d pending)", cap(p.jobChan))
	}
}

// Start launches the workers and blocks until the context is cancelled and
// every worker has drained its current job.
func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup
	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	<-ctx.Done()

	log.Println("[WorkingPool] Shutdown signaled. Closing job channel.")
	close(p.jobChan)

	workerWg.Wait()
	log.Println("[WorkingPool] All workers stopped.")
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	log.Printf("[WorkingPool-Worker %d] Started and waiting for jobs.", id)

	for {
		select {
		case job, ok := <-p.jobChan:
			if !ok {
				log.Printf("[WorkingPool-Worker %d] Job channel closed. Exiting.", id)
				return
			}
			p.safeExecution(ctx, job, id)

		case <-ctx.Done():
			log.Printf("[WorkingPool-Worker %d] Context canceled. Exiting.", id)
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WorkingPool-Worker %d] FATAL: Panic recovered in job: %v", workerID, r)
		}
	}()

	if err := job(ctx); err != nil {
		log.Printf("[WorkingPool-Worker %d] Job failed: %v", workerID, err)
	}
}
