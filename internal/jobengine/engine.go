// Package jobengine implements the thread-safe task registry of §4.12 and
// the two task kinds of §4.13: tiled-image rendering and per-frame
// animation rendering. One mutex serializes add/get/finished exactly as
// §5 prescribes ("Calls are short ... the coarse lock is adequate").
package jobengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/rlog"
)

// Task is anything the engine can dispatch actions for and fold completed
// results into (§3 "Task").
type Task interface {
	// NextAction returns the next action to dispatch, or ok=false once the
	// task has issued every action it will ever issue.
	NextAction() (actionID uint32, payload []byte, ok bool)
	// Finished folds one action's results into the task's output and
	// reports whether the task is now complete.
	Finished(actionID uint32, results []byte) (done bool, err error)
}

type entry struct {
	id        uint32
	task      Task
	active    map[uint32]time.Time
	startedAt time.Time
}

// Engine is the registry named in §4.12: `(TaskID → Task, active-action
// list)`.
type Engine struct {
	mu       sync.Mutex
	order    []uint32
	byID     map[uint32]*entry
	nextID   uint32
	log      *rlog.Logger
	nowFunc  func() time.Time
}

// New returns an empty engine. log may be nil to discard completion
// messages.
func New(log *rlog.Logger) *Engine {
	return &Engine{
		byID:    make(map[uint32]*entry),
		log:     log,
		nowFunc: time.Now,
	}
}

// AddTask assigns a fresh monotonic TaskID and registers task, returning
// the ID (§4.12 "add_task").
func (e *Engine) AddTask(task Task) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.order = append(e.order, id)
	e.byID[id] = &entry{id: id, task: task, active: make(map[uint32]time.Time), startedAt: e.nowFunc()}
	return id
}

// GetNewAction iterates tasks in insertion order, asking each for its next
// action until one succeeds (§4.12 "get_new_action"). It returns ok=false
// only once every registered task has exhausted its actions.
func (e *Engine) GetNewAction() (taskID, actionID uint32, payload []byte, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.order {
		ent, present := e.byID[id]
		if !present {
			continue
		}
		aid, p, got := ent.task.NextAction()
		if !got {
			continue
		}
		ent.active[aid] = e.nowFunc()
		return ent.id, aid, p, true
	}
	return 0, 0, nil, false
}

// FinishedAction looks up taskID, folds results into it via Task.Finished,
// and removes the task from the registry once it reports completion
// (§4.12 "finished_action"). A taskID unknown to the registry (e.g. the
// connection that owned it already dropped and was never re-issued) is not
// an error: §5 states lost actions are simply never notified back to the
// engine.
func (e *Engine) FinishedAction(taskID, actionID uint32, results []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, present := e.byID[taskID]
	if !present {
		return nil
	}
	done, err := ent.task.Finished(actionID, results)
	if err != nil {
		return fmt.Errorf("jobengine: task %d action %d: %w", taskID, actionID, err)
	}
	delete(ent.active, actionID)
	if done {
		elapsed := e.nowFunc().Sub(ent.startedAt)
		if e.log != nil {
			e.log.Info("task %d completed in %s", taskID, elapsed)
		}
		delete(e.byID, taskID)
		for i, id := range e.order {
			if id == taskID {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// PendingTaskCount reports how many tasks remain registered, used by tests
// and server shutdown diagnostics.
func (e *Engine) PendingTaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}
