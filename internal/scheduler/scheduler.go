package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"warden/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTaskNotFound is returned when no persisted task matches a lookup.
	ErrTaskNotFound = errors.New("scheduler: task not found")
	// ErrUnknownPreset is returned when a task names a preset the scheduler
	// does not know. Hitting this during Load means the database and the
	// binary disagree, which is not recoverable.
	ErrUnknownPreset = errors.New("scheduler: unknown preset")
)

// Preset is a named action a task executes when it fires.
type Preset func(ctx context.Context, args ...string) error

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

type taskState int

const (
	stateScheduled taskState = iota
	stateExecuting
	stateDone
)

type pendingTask struct {
	task  storage.Task
	timer Timer
	state taskState
}

// Scheduler persists deferred tasks and fires them through registered
// presets. Tasks survive restarts; Load rebuilds the in-memory timers from
// the store.
type Scheduler struct {
	mu      sync.Mutex
	store   *storage.Store
	logger  *zap.Logger
	clock   Clock
	presets map[string]Preset
	pending map[string]*pendingTask
	loaded  bool
}

func New(store *storage.Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		logger:  logger,
		clock:   realClock{},
		presets: make(map[string]Preset),
		pending: make(map[string]*pendingTask),
	}
}

func (s *Scheduler) WithClock(clock Clock) {
	s.clock = clock
}

// Register binds a preset name to its action. All presets must be registered
// before Load.
func (s *Scheduler) Register(name string, preset Preset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[name] = preset
}

// Load reads all persisted tasks and arms a timer for each. Tasks already
// past due fire immediately. Calling Load twice is a no-op; a failed Load
// leaves the scheduler unloaded so it can be retried.
func (s *Scheduler) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	for _, task := range tasks {
		if _, ok := s.preset(task.Name); !ok {
			return fmt.Errorf("%w: %q (task %s)", ErrUnknownPreset, task.Name, task.ID)
		}
	}
	for _, task := range tasks {
		s.arm(task)
	}
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	s.logger.Info("scheduler loaded", zap.Int("tasks", len(tasks)))
	return nil
}

// NewTask persists a task and arms its timer.
func (s *Scheduler) NewTask(ctx context.Context, delay time.Duration, name string, args ...string) (storage.Task, error) {
	if _, ok := s.preset(name); !ok {
		return storage.Task{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	now := s.clock.Now()
	task := storage.Task{
		ID:        uuid.NewString(),
		Name:      name,
		Arguments: args,
		RunAt:     now.Add(delay),
		CreatedAt: now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return storage.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.arm(task)
	return task, nil
}

// RunTaskNow fires the task matching name and args immediately, ahead of its
// timer. The task executes exactly once even if the timer fires concurrently.
func (s *Scheduler) RunTaskNow(ctx context.Context, name string, args ...string) error {
	task, err := s.store.FindTask(ctx, name, args)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	s.mu.Lock()
	entry := s.pending[task.ID]
	if entry == nil {
		entry = &pendingTask{task: task}
		s.pending[task.ID] = entry
	}
	if entry.state != stateScheduled {
		s.mu.Unlock()
		return nil
	}
	entry.state = stateExecuting
	if entry.timer != nil {
		entry.timer.Stop()
	}
	s.mu.Unlock()

	s.execute(entry)
	return nil
}

// CancelTask removes the task matching name and args without running it.
// Reports whether a task was found.
func (s *Scheduler) CancelTask(ctx context.Context, name string, args ...string) (bool, error) {
	task, err := s.store.FindTask(ctx, name, args)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	s.mu.Lock()
	if entry := s.pending[task.ID]; entry != nil {
		if entry.state != stateScheduled {
			s.mu.Unlock()
			return false, nil
		}
		entry.state = stateDone
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(s.pending, task.ID)
	}
	s.mu.Unlock()

	if _, err := s.store.DeleteTask(ctx, task.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Scheduler) preset(name string) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	preset, ok := s.presets[name]
	return preset, ok
}

func (s *Scheduler) arm(task storage.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &pendingTask{task: task}
	s.pending[task.ID] = entry

	delay := task.RunAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	entry.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if entry.state != stateScheduled {
			s.mu.Unlock()
			return
		}
		entry.state = stateExecuting
		s.mu.Unlock()
		s.execute(entry)
	})
}

// execute runs the preset and retires the task. The caller must have moved
// the entry to executing. Preset failures are logged; the task row is removed
// either way so a broken task cannot fire forever.
func (s *Scheduler) execute(entry *pendingTask) {
	preset, ok := s.preset(entry.task.Name)
	ctx := context.Background()
	if !ok {
		s.logger.Error("task names unknown preset", zap.String("task_id", entry.task.ID), zap.String("preset", entry.task.Name))
	} else if err := preset(ctx, entry.task.Arguments...); err != nil {
		s.logger.Error("task failed",
			zap.String("task_id", entry.task.ID),
			zap.String("preset", entry.task.Name),
			zap.Strings("args", entry.task.Arguments),
			zap.Error(err))
	}

	s.mu.Lock()
	entry.state = stateDone
	delete(s.pending, entry.task.ID)
	s.mu.Unlock()

	if _, err := s.store.DeleteTask(ctx, entry.task.ID); err != nil {
		s.logger.Error("delete fired task", zap.String("task_id", entry.task.ID), zap.Error(err))
	}
}
