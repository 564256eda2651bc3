package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitForStatus(t *testing.T, q *JobQueue, id string, want JobStatus) JobView {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, ok := q.Status(id)
		if !ok {
			t.Fatalf("job %s vanished from the registry", id)
		}

		if view.Status == want {
			return view
		}

		time.Sleep(10 * time.Millisecond)
	}

	view, _ := q.Status(id)
	t.Fatalf("job %s never reached %s, stuck at %s", id, want, view.Status)
	return JobView{}
}

func TestJobQueue(t *testing.T) {
	t.Run("pending until a worker picks it up", func(t *testing.T) {
		q := NewJobQueue()

		id, err := q.Submit("backup", func(ctx context.Context) (any, error) {
			return nil, nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		view, ok := q.Status(id)
		if !ok {
			t.Fatal("job not registered")
		}
		if view.Status != JobPending {
			t.Fatalf("expected pending, got %s", view.Status)
		}
	})

	t.Run("completes and exposes the result", func(t *testing.T) {
		q := NewJobQueue()
		q.StartWorkerPool()

		id, err := q.Submit("backup", func(ctx context.Context) (any, error) {
			return map[string]string{"s3_key": "backups/x.zip"}, nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		view := waitForStatus(t, q, id, JobCompleted)

		result, ok := view.Result.(map[string]string)
		if !ok || result["s3_key"] != "backups/x.zip" {
			t.Fatalf("unexpected result: %+v", view.Result)
		}
		if view.Error != "" {
			t.Fatalf("completed job carries an error: %q", view.Error)
		}
	})

	t.Run("failures surface the error message", func(t *testing.T) {
		q := NewJobQueue()
		q.StartWorkerPool()

		id, err := q.Submit("restore", func(ctx context.Context) (any, error) {
			return nil, errors.New("container is torn")
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		view := waitForStatus(t, q, id, JobFailed)

		if view.Error != "container is torn" {
			t.Fatalf("expected the job error, got %q", view.Error)
		}
		if view.Result != nil {
			t.Fatalf("failed job carries a result: %+v", view.Result)
		}
	})

	t.Run("unknown IDs report not found", func(t *testing.T) {
		q := NewJobQueue()

		if _, ok := q.Status("nope"); ok {
			t.Fatal("expected unknown job to be reported missing")
		}
	})

	t.Run("evicts finished jobs past their retention window", func(t *testing.T) {
		q := NewJobQueue()
		q.StartWorkerPool()

		id, err := q.Submit("backup", func(ctx context.Context) (any, error) {
			return nil, nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		waitForStatus(t, q, id, JobCompleted)

		// Everything finished before this cutoff goes away
		q.evictFinished(time.Now().Add(time.Minute))

		if _, ok := q.Status(id); ok {
			t.Fatal("finished job survived eviction")
		}
	})

	t.Run("never evicts jobs that haven't finished", func(t *testing.T) {
		q := NewJobQueue()

		id, err := q.Submit("backup", func(ctx context.Context) (any, error) {
			return nil, nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		q.evictFinished(time.Now().Add(time.Minute))

		view, ok := q.Status(id)
		if !ok {
			t.Fatal("pending job was evicted")
		}
		if view.Status != JobPending {
			t.Fatalf("expected pending, got %s", view.Status)
		}
	})

	t.Run("rejects submissions once saturated", func(t *testing.T) {
		// No workers running, so the channel fills up
		q := NewJobQueue()

		var lastErr error
		for range 64 {
			_, lastErr = q.Submit("backup", func(ctx context.Context) (any, error) {
				return nil, nil
			})
			if lastErr != nil {
				break
			}
		}

		if lastErr == nil {
			t.Fatal("expected a saturation error")
		}
	})
}
