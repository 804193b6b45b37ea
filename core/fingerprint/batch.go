package fingerprint

import (
	"context"
	"sync"
)

// DefaultWorkers is the default number of concurrent hash workers.
const DefaultWorkers = 4

// maxWorkers bounds concurrent file handles regardless of configuration.
const maxWorkers = 64

// Outcome is the result of hashing one path in a batch.
type Outcome struct {
	Path   string
	Digest Digest
	Err    error
}

// HashAll digests paths with a bounded worker pool and returns outcomes in
// input order. It returns only after every started read has finished. If ctx
// is cancelled, unstarted paths carry ctx.Err().
func HashAll(ctx context.Context, hasher FileHasher, paths []string, workers int) []Outcome {
	if len(paths) == 0 {
		return nil
	}

	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, maxWorkers, len(paths))

	outcomes := make([]Outcome, len(paths))
	jobs := make(chan int, len(paths))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go hashWorker(ctx, hasher, paths, jobs, outcomes, &wg)
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return outcomes
}

// hashWorker drains jobs. Each index is written by exactly one worker.
func hashWorker(
	ctx context.Context,
	hasher FileHasher,
	paths []string,
	jobs <-chan int,
	outcomes []Outcome,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for i := range jobs {
		path := paths[i]
		if err := ctx.Err(); err != nil {
			outcomes[i] = Outcome{Path: path, Err: err}
			continue
		}
		digest, err := hasher.Hash(path)
		outcomes[i] = Outcome{Path: path, Digest: digest, Err: err}
	}
}
