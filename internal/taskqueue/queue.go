package taskqueue

import (
	"math/rand"
	"sync"
	"time"

	"SwarmFund/internal/model"

	"github.com/google/uuid"
)

// Queue dispenses discrete units of work to agents. Tasks are held in
// memory only; unclaimed tasks do not survive a restart. Claim order is
// FIFO within a generation batch and a claimed task id is never returned
// twice.
type Queue struct {
	mu      sync.Mutex
	pending []*model.Task
	claimed map[string]*model.Task
	kinds   []model.StrategyKind
	rng     *rand.Rand
}

// New creates a queue generating tasks from the given strategy kinds.
func New(kinds []model.StrategyKind) *Queue {
	if len(kinds) == 0 {
		kinds = model.KnownStrategies()
	}
	return &Queue{
		claimed: make(map[string]*model.Task),
		kinds:   kinds,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate appends n pending tasks with kinds drawn uniformly at random
// from the configured set.
func (q *Queue) Generate(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := 0; i < n; i++ {
		kind := q.kinds[q.rng.Intn(len(q.kinds))]
		q.pending = append(q.pending, &model.Task{
			ID:        uuid.NewString()[:8],
			Kind:      kind,
			Params:    map[string]string{},
			CreatedAt: time.Now().UTC(),
			Status:    model.TaskPending,
		})
	}
}

// Add appends a single pending task of the given kind and returns its id.
func (q *Queue) Add(kind model.StrategyKind, params map[string]string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if params == nil {
		params = map[string]string{}
	}
	t := &model.Task{
		ID:        uuid.NewString()[:8],
		Kind:      kind,
		Params:    params,
		CreatedAt: time.Now().UTC(),
		Status:    model.TaskPending,
	}
	q.pending = append(q.pending, t)
	return t.ID
}

// Claim pops the oldest pending task, marking it claimed. The second return
// is false when the queue is empty; an empty queue is an expected state,
// not an error.
func (q *Queue) Claim() (model.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return model.Task{}, false
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	t.Status = model.TaskClaimed
	q.claimed[t.ID] = t
	return *t, true
}

// Complete transitions a claimed task to done or failed. Unknown ids are
// ignored.
func (q *Queue) Complete(id string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, found := q.claimed[id]
	if !found {
		return
	}
	if ok {
		t.Status = model.TaskDone
	} else {
		t.Status = model.TaskFailed
	}
	delete(q.claimed, id)
}

// Pending returns the number of unclaimed tasks.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
