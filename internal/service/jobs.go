// Package service holds the background workers: the backup/restore job
// queue and the periodic sweeps.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"mediavault/media-api/pkg/util"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is one asynchronous unit of work. Backup and restore both run far
// longer than an HTTP request is allowed to, so callers get an ID back and
// poll.
type Job struct {
	ID        string
	Operation string

	mu       sync.Mutex
	status   JobStatus
	result   any
	errMsg   string
	finished time.Time

	run func(ctx context.Context) (any, error)
}

// JobView is the immutable snapshot handed out to pollers
type JobView struct {
	ID        string    `json:"job_id"`
	Operation string    `json:"operation"`
	Status    JobStatus `json:"status"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func (j *Job) view() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()

	return JobView{
		ID:        j.ID,
		Operation: j.Operation,
		Status:    j.status,
		Result:    j.result,
		Error:     j.errMsg,
	}
}

type JobQueue struct {
	jobs      chan *Job
	registry  sync.Map // job ID -> *Job
	workers   int
	timeout   time.Duration
	retention time.Duration
}

// NewJobQueue initializes a new job queue that limits the
// max amount of jobs that can be queued at once
func NewJobQueue() *JobQueue {
	workers := viper.GetInt("backup.workers")
	if workers <= 0 {
		workers = 2
	}

	timeout := viper.GetDuration("backup.job_timeout")
	if timeout <= 0 {
		timeout = 2 * time.Hour
	}

	retention := viper.GetDuration("backup.job_retention")
	if retention <= 0 {
		retention = time.Hour
	}

	zap.L().Debug("Initializing job queue",
		zap.Int("workers", workers),
		zap.Duration("timeout", timeout),
		zap.Duration("retention", retention))

	return &JobQueue{
		jobs:      make(chan *Job, 32),
		workers:   workers,
		timeout:   timeout,
		retention: retention,
	}
}

// StartWorkerPool launches the workers plus a janitor that drops finished
// jobs from the registry once their retention window passes, so the polling
// API can't grow the process without bound
func (q *JobQueue) StartWorkerPool() {
	for range q.workers {
		go q.worker()
	}

	go func() {
		ticker := time.NewTicker(time.Minute)

		for range ticker.C {
			q.evictFinished(time.Now().Add(-q.retention))
		}
	}()
}

// evictFinished drops every job that finished before the cutoff. Pending and
// running jobs are never touched.
func (q *JobQueue) evictFinished(cutoff time.Time) {
	q.registry.Range(func(key, value any) bool {
		job := value.(*Job)

		job.mu.Lock()
		done := job.status == JobCompleted || job.status == JobFailed
		finished := job.finished
		job.mu.Unlock()

		if done && finished.Before(cutoff) {
			q.registry.Delete(key)

			zap.L().Debug("Evicted finished job",
				zap.String("job_id", job.ID),
				zap.String("operation", job.Operation))
		}

		return true
	})
}

func (q *JobQueue) worker() {
	for job := range q.jobs {
		job.mu.Lock()
		job.status = JobInProgress
		job.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		result, err := job.run(ctx)
		cancel()

		job.mu.Lock()
		job.finished = time.Now()
		if err != nil {
			job.status = JobFailed
			job.errMsg = err.Error()
		} else {
			job.status = JobCompleted
			job.result = result
		}
		job.mu.Unlock()

		if err != nil {
			zap.L().Error("Job finished with an error",
				zap.String("job_id", job.ID),
				zap.String("operation", job.Operation),
				zap.Error(err))
		} else {
			zap.L().Info("Job finished",
				zap.String("job_id", job.ID),
				zap.String("operation", job.Operation))
		}
	}
}

// Submit registers a new job and queues it for execution. Returns the job
// ID the caller polls with, or an error when the queue is saturated.
func (q *JobQueue) Submit(operation string, run func(ctx context.Context) (any, error)) (string, error) {
	job := &Job{
		ID:        util.RandStr(16),
		Operation: operation,
		status:    JobPending,
		run:       run,
	}

	q.registry.Store(job.ID, job)

	select {
	case q.jobs <- job:
		zap.L().Debug("Job enqueued",
			zap.String("job_id", job.ID),
			zap.String("operation", operation))
		return job.ID, nil
	default:
		q.registry.Delete(job.ID)
		return "", errors.New("job queue full")
	}
}

// Status returns the current view of a job, or false if no such job exists
func (q *JobQueue) Status(id string) (JobView, bool) {
	v, ok := q.registry.Load(id)
	if !ok {
		return JobView{}, false
	}

	return v.(*Job).view(), true
}
