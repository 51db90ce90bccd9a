package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlabs/lumen/internal/pipeline"
	"github.com/lumenlabs/lumen/internal/session"
)

// Sentinel errors for controller operations.
var (
	// ErrBusy indicates a submission is already in flight for the
	// active session. The rejected submit is a no-op: history is
	// unchanged and the pipeline is not invoked.
	ErrBusy = errors.New("submission already in flight")

	// ErrNoActiveSession indicates no session is selected.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSuperseded indicates the active session changed while the
	// submission was in flight; its result was discarded.
	ErrSuperseded = errors.New("submission superseded by session switch")

	// ErrClosed indicates the controller has been closed.
	ErrClosed = errors.New("controller is closed")
)

// State is the per-session submission state.
type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
)

// TurnStore is the durable turn log as the controller consumes it.
type TurnStore interface {
	AppendTurn(ctx context.Context, sessionID uuid.UUID, role, content string) (*session.Turn, error)
	Turns(ctx context.Context, sessionID uuid.UUID, limit int32) ([]session.Turn, error)
}

// TurnWatcher is the live subscription to a session's turn log.
type TurnWatcher interface {
	Watch(ctx context.Context, sessionID uuid.UUID) (<-chan []session.Turn, error)
}

// Responder produces an assistant response for an utterance. Implemented
// by pipeline.Runner.
type Responder interface {
	Run(ctx context.Context, utterance string, history []pipeline.Turn, mode pipeline.Mode) (*pipeline.Response, error)
}

// Config contains all required parameters for the Controller.
type Config struct {
	Store   TurnStore
	Watcher TurnWatcher
	Runner  Responder
	Logger  *slog.Logger

	// NoticeBuffer sizes the notices channel (0 = default 16).
	NoticeBuffer int
}

func (cfg Config) validate() error {
	if cfg.Store == nil {
		return errors.New("turn store is required")
	}
	if cfg.Watcher == nil {
		return errors.New("turn watcher is required")
	}
	if cfg.Runner == nil {
		return errors.New("responder is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Controller is the optimistic sync controller for one UI surface.
// Exactly one session is active at a time; switching sessions cancels
// interest in the previous subscription and discards in-flight results.
//
// Safe for concurrent use.
type Controller struct {
	store   TurnStore
	watcher TurnWatcher
	runner  Responder
	logger  *slog.Logger

	notices chan Notice

	mu          sync.Mutex
	active      uuid.UUID
	generation  uint64 // bumped on every session switch
	state       State
	closed      bool
	durable     []session.Turn // latest subscription snapshot
	optimistic  []session.Turn // speculative turns, appended after durable
	cancelWatch context.CancelFunc

	wg sync.WaitGroup // watch consumers and fire-and-forget writes
}

// NewController creates a Controller with no active session.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	buf := cfg.NoticeBuffer
	if buf <= 0 {
		buf = 16
	}

	return &Controller{
		store:   cfg.Store,
		watcher: cfg.Watcher,
		runner:  cfg.Runner,
		logger:  cfg.Logger,
		state:   StateIdle,
		notices: make(chan Notice, buf),
	}, nil
}

// Notices returns the channel on which asynchronous failures are
// reported. Consumers should drain it; when full, new notices are
// logged and dropped rather than blocking the engine. The channel is
// closed by Close once all background work has finished.
func (c *Controller) Notices() <-chan Notice {
	return c.notices
}

// State returns the current submission state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveSession returns the active session id, or uuid.Nil.
func (c *Controller) ActiveSession() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// History returns the displayed turn sequence: the latest durable
// snapshot with any unconfirmed optimistic turns appended.
func (c *Controller) History() []session.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mergedLocked()
}

func (c *Controller) mergedLocked() []session.Turn {
	merged := make([]session.Turn, 0, len(c.durable)+len(c.optimistic))
	merged = append(merged, c.durable...)
	merged = append(merged, c.optimistic...)
	return merged
}

// SetActiveSession switches the active session and subscribes to its
// turn log. The previous subscription is cancelled and any in-flight
// submission's eventual result is discarded — it is never applied to
// the new session. Passing uuid.Nil clears the selection.
func (c *Controller) SetActiveSession(ctx context.Context, sessionID uuid.UUID) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.active == sessionID {
		c.mu.Unlock()
		return nil
	}

	if c.cancelWatch != nil {
		c.cancelWatch()
		c.cancelWatch = nil
	}

	c.generation++
	gen := c.generation
	c.active = sessionID
	c.state = StateIdle
	c.durable = nil
	c.optimistic = nil

	if sessionID == uuid.Nil {
		c.mu.Unlock()
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	c.cancelWatch = cancel
	c.mu.Unlock()

	snapshots, err := c.watcher.Watch(watchCtx, sessionID)
	if err != nil {
		cancel()
		c.mu.Lock()
		if c.generation == gen {
			c.active = uuid.Nil
			c.cancelWatch = nil
		}
		c.mu.Unlock()
		return fmt.Errorf("subscribing to session %s: %w", sessionID, err)
	}

	// Register the consumer under the lock so Close cannot slip its
	// wg.Wait between the Watch call and the Add.
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		for snapshot := range snapshots {
			c.applySnapshot(gen, snapshot)
		}
	}()

	return nil
}

// applySnapshot reconciles a subscription emission with the optimistic
// view. Stale generations (session switched) are ignored.
func (c *Controller) applySnapshot(gen uint64, snapshot []session.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}

	c.durable = snapshot

	// Merge rule: the snapshot supersedes an optimistic turn once it
	// reaches the turn's timestamp; earlier snapshots must not drop a
	// pending turn mid-flight.
	var lastTS time.Time
	if len(snapshot) > 0 {
		lastTS = snapshot[len(snapshot)-1].CreatedAt
	}

	kept := c.optimistic[:0]
	for _, t := range c.optimistic {
		if t.CreatedAt.After(lastTS) {
			kept = append(kept, t)
		}
	}
	c.optimistic = kept

	c.logger.Debug("applied turn snapshot",
		"session_id", c.active,
		"durable", len(snapshot),
		"optimistic", len(c.optimistic))
}

// Submit sends a user utterance through the pipeline for the active
// session. The speculative user turn is visible in History immediately;
// its durable write is fire-and-forget. On pipeline success the
// assistant turn is displayed and durably appended; on failure the
// speculative turn is rolled back so the displayed history matches the
// state before submission.
//
// Only one submission may be in flight per session: a second Submit
// while Sending returns ErrBusy without touching history or the
// pipeline.
func (c *Controller) Submit(ctx context.Context, utterance string, mode pipeline.Mode) (*pipeline.Response, error) {
	c.mu.Lock()
	if c.active == uuid.Nil {
		c.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	if c.state == StateSending {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	gen := c.generation
	sessionID := c.active
	c.state = StateSending

	userTurn := session.Turn{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      session.RoleUser,
		Content:   utterance,
		CreatedAt: time.Now(),
	}
	c.optimistic = append(c.optimistic, userTurn)

	// Pipeline input includes the just-added speculative turn.
	history := toPipelineTurns(c.mergedLocked())

	// Durable write of the user turn is fire-and-forget; failure is
	// surfaced asynchronously, not by blocking the submission.
	userWritten := c.appendDurableLocked(ctx, sessionID, session.RoleUser, utterance, nil)
	c.mu.Unlock()

	c.logger.Debug("submitting utterance",
		"session_id", sessionID, "mode", mode, "state", StateSending)

	resp, err := c.runner.Run(ctx, utterance, history, mode)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// Session switched mid-flight: the result belongs to a view
		// that no longer exists. Discard it entirely.
		c.logger.Debug("discarding superseded submission result", "session_id", sessionID)
		return nil, ErrSuperseded
	}

	if err != nil {
		// Roll back the speculative user turn: display correction only,
		// the durable write is not retracted.
		c.removeOptimisticLocked(userTurn.ID)
		c.state = StateIdle
		c.report(Notice{
			Kind:      NoticePipelineFailed,
			SessionID: sessionID,
			Err:       err,
			At:        time.Now(),
		})
		c.logger.Debug("submission failed", "session_id", sessionID, "state", "failed")
		return nil, fmt.Errorf("running pipeline: %w", err)
	}

	assistantTurn := session.Turn{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      session.RoleAssistant,
		Content:   resp.Text,
		CreatedAt: time.Now(),
	}
	c.optimistic = append(c.optimistic, assistantTurn)

	// A late persistence failure of the assistant turn does not retract
	// the displayed response; it is reported on the notices channel.
	// The write is sequenced after the user turn's write so the durable
	// log preserves submission order even when the user write is slow.
	c.appendDurableLocked(ctx, sessionID, session.RoleAssistant, resp.Text, userWritten)

	c.state = StateIdle
	c.logger.Debug("submission succeeded", "session_id", sessionID, "state", "success")
	return resp, nil
}

// optimisticWithout returns the optimistic view minus the given turn.
func (c *Controller) optimisticWithout(id uuid.UUID) []session.Turn {
	kept := make([]session.Turn, 0, len(c.optimistic))
	for _, t := range c.optimistic {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return kept
}

func (c *Controller) removeOptimisticLocked(id uuid.UUID) {
	c.optimistic = c.optimisticWithout(id)
}

// appendDurableLocked issues a fire-and-forget durable append whose
// failure is routed to the notices channel, never silently dropped.
// Requires c.mu held, so the write goroutine is always registered
// before Close can wait. The returned channel closes once the write
// has finished; a non-nil after channel delays the write until the
// preceding one completes, keeping per-session turn order.
func (c *Controller) appendDurableLocked(ctx context.Context, sessionID uuid.UUID, role, content string, after <-chan struct{}) <-chan struct{} {
	// The write must outlive the submit call's context.
	writeCtx := context.WithoutCancel(ctx)
	done := make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		if after != nil {
			<-after
		}
		if _, err := c.store.AppendTurn(writeCtx, sessionID, role, content); err != nil {
			c.report(Notice{
				Kind:      NoticeSyncWriteFailed,
				SessionID: sessionID,
				Err:       err,
				At:        time.Now(),
			})
		}
	}()
	return done
}

// report delivers a notice without blocking; drops (and logs) when the
// consumer is not draining.
func (c *Controller) report(n Notice) {
	select {
	case c.notices <- n:
	default:
		c.logger.Warn("notice channel full, dropping",
			"kind", n.Kind, "session_id", n.SessionID, "error", n.Err)
	}
}

// Close cancels the active subscription, waits for background work and
// closes the notices channel. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancelWatch != nil {
		c.cancelWatch()
		c.cancelWatch = nil
	}
	c.generation++
	c.active = uuid.Nil
	c.mu.Unlock()

	c.wg.Wait()
	close(c.notices)
}

// toPipelineTurns converts stored turns to the pipeline's role-tagged
// input shape. Role tags pass through unchanged; normalization happens
// inside the pipeline boundary.
func toPipelineTurns(turns []session.Turn) []pipeline.Turn {
	out := make([]pipeline.Turn, len(turns))
	for i, t := range turns {
		out[i] = pipeline.Turn{Role: t.Role, Content: t.Content}
	}
	return out
}
