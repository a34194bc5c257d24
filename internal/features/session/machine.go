// Package session holds the per-launch session state: the reconciled user
// record and the status of its bootstrap.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	apperrors "marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/logger"
	"marketplace-miniapp-backend/internal/features/user/models"
)

type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusLoading       Status = "loading"
	StatusInitialized   Status = "initialized"
	StatusError         Status = "error"
)

// ErrInvalidTransition is returned when an operation is not allowed from the
// current status, e.g. Start on an initialized session.
var ErrInvalidTransition = errors.New("invalid session transition")

// ErrClosed is returned by operations on a torn-down session.
var ErrClosed = errors.New("session closed")

// Reconciler maps a launch identity to its durable record.
type Reconciler interface {
	EnsureUser(ctx context.Context, identity models.LaunchIdentity) (*models.UserRecord, error)
}

// Machine is the session state container. All state changes go through
// transition; results of a superseded or torn-down load are discarded.
type Machine struct {
	reconciler Reconciler
	identity   *models.LaunchIdentity
	log        zerolog.Logger

	mu     sync.Mutex
	st     state
	gen    uint64
	done   chan struct{}
	cancel context.CancelFunc
}

// New creates an uninitialized session. identity may be nil when the host
// did not supply launch data; the first load then fails with UNKNOWN_IDENTITY.
func New(reconciler Reconciler, identity *models.LaunchIdentity) *Machine {
	var id *models.LaunchIdentity
	if identity != nil {
		cp := *identity
		id = &cp
	}
	return &Machine{
		reconciler: reconciler,
		identity:   id,
		log:        logger.Component("session"),
		st:         state{status: StatusUninitialized},
	}
}

// Start moves an uninitialized session to loading and reconciles in the
// background. It returns immediately.
func (m *Machine) Start(ctx context.Context) error {
	return m.begin(ctx, event{kind: evStart})
}

// Retry re-enters loading from error.
func (m *Machine) Retry(ctx context.Context) error {
	return m.begin(ctx, event{kind: evRetry})
}

func (m *Machine) begin(ctx context.Context, ev event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := transition(m.st, ev)
	if err != nil {
		return err
	}
	m.st = next
	m.gen++

	loadCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.done, m.cancel = done, cancel

	go m.load(loadCtx, m.gen, done)
	return nil
}

func (m *Machine) load(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	var (
		record *models.UserRecord
		err    error
	)
	if m.identity == nil {
		err = apperrors.NewUnknownIdentityError("launch data is missing")
	} else {
		record, err = m.reconciler.EnsureUser(ctx, *m.identity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.st.closed {
		m.log.Debug().Uint64("generation", gen).Msg("stale session load discarded")
		return
	}

	ev := event{kind: evResolved, record: record}
	if err != nil {
		ev = event{kind: evFailed, err: bootstrapError(err)}
		m.log.Warn().Err(err).Int64("telegram_id", m.telegramID()).Msg("session bootstrap failed")
	} else if record == nil {
		ev = event{kind: evFailed, err: apperrors.NewStorageUnavailableError("ensure user", errors.New("no record returned"))}
	}

	next, terr := transition(m.st, ev)
	if terr != nil {
		m.log.Error().Err(terr).Msg("session load result rejected")
		return
	}
	m.st = next
}

// Wait blocks until the in-flight load (if any) has finished and returns the
// resulting snapshot.
func (m *Machine) Wait(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return m.Snapshot(), ctx.Err()
		}
	}
	return m.Snapshot(), nil
}

// Run starts (or retries) the bootstrap and waits for it.
func (m *Machine) Run(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	ev := event{kind: evStart}
	if m.st.status == StatusError {
		ev = event{kind: evRetry}
	}
	m.mu.Unlock()

	if err := m.begin(ctx, ev); err != nil {
		return m.Snapshot(), err
	}
	return m.Wait(ctx)
}

// Apply replaces the record of an initialized session after a mutation made
// elsewhere (onboarding, moderation).
func (m *Machine) Apply(record *models.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := transition(m.st, event{kind: evApply, record: record})
	if err != nil {
		return err
	}
	m.st = next
	return nil
}

// Close tears the session down. A load still in flight is cancelled and its
// result is dropped.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := transition(m.st, event{kind: evClose})
	if err != nil {
		return
	}
	m.st = next
	if m.cancel != nil {
		m.cancel()
	}
}

// Snapshot returns an immutable copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Status: m.st.status,
		Record: m.st.record.Clone(),
		Err:    m.st.err,
	}
	if m.identity != nil {
		id := *m.identity
		s.Identity = &id
	}
	return s
}

func (m *Machine) Status() Status { return m.Snapshot().Status }

func (m *Machine) IsOnboardingCompleted() bool { return m.Snapshot().IsOnboardingCompleted() }

func (m *Machine) IsUserBlocked() bool { return m.Snapshot().IsUserBlocked() }

func (m *Machine) IsUserAdmin() bool { return m.Snapshot().IsUserAdmin() }

func (m *Machine) IsUserAvailable() bool { return m.Snapshot().IsUserAvailable() }

// caller holds mu
func (m *Machine) telegramID() int64 {
	if m.identity == nil {
		return 0
	}
	return m.identity.TelegramID
}

// bootstrapError narrows any load failure to the two session-fatal codes.
func bootstrapError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsSessionFatal() {
		return appErr
	}
	return apperrors.NewStorageUnavailableError("ensure user", err)
}

// Snapshot is a point-in-time view of a session. The derived accessors are
// computed from Record on every call.
type Snapshot struct {
	Status   Status
	Identity *models.LaunchIdentity
	Record   *models.UserRecord
	Err      *apperrors.AppError
}

func (s Snapshot) IsOnboardingCompleted() bool {
	return s.Record != nil && s.Record.OnboardingCompleted
}

func (s Snapshot) IsUserBlocked() bool {
	return s.Record != nil && s.Record.IsBlocked
}

func (s Snapshot) IsUserAdmin() bool {
	return s.Record != nil && s.Record.Role == models.RoleAdmin
}

func (s Snapshot) IsUserAvailable() bool {
	return s.Record != nil
}

type eventKind int

const (
	evStart eventKind = iota
	evRetry
	evResolved
	evFailed
	evApply
	evClose
)

func (k eventKind) String() string {
	switch k {
	case evStart:
		return "start"
	case evRetry:
		return "retry"
	case evResolved:
		return "resolved"
	case evFailed:
		return "failed"
	case evApply:
		return "apply"
	case evClose:
		return "close"
	}
	return "unknown"
}

type event struct {
	kind   eventKind
	record *models.UserRecord
	err    *apperrors.AppError
}

type state struct {
	status Status
	record *models.UserRecord
	err    *apperrors.AppError
	closed bool
}

// transition is the whole state machine:
//
//	uninitialized --start--> loading
//	error --retry--> loading
//	loading --resolved--> initialized
//	loading --failed--> error
//	initialized --apply--> initialized
//	any --close--> closed (terminal)
func transition(s state, e event) (state, error) {
	if s.closed {
		return s, ErrClosed
	}

	switch {
	case e.kind == evClose:
		s.closed = true
		return s, nil
	case e.kind == evStart && s.status == StatusUninitialized,
		e.kind == evRetry && s.status == StatusError:
		return state{status: StatusLoading}, nil
	case e.kind == evResolved && s.status == StatusLoading && e.record != nil:
		return state{status: StatusInitialized, record: e.record.Clone()}, nil
	case e.kind == evFailed && s.status == StatusLoading && e.err != nil:
		return state{status: StatusError, err: e.err}, nil
	case e.kind == evApply && s.status == StatusInitialized && e.record != nil:
		if s.record != nil && e.record.TelegramID != s.record.TelegramID {
			return s, fmt.Errorf("%w: record belongs to another user", ErrInvalidTransition)
		}
		return state{status: StatusInitialized, record: e.record.Clone()}, nil
	}
	return s, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e.kind, s.status)
}
