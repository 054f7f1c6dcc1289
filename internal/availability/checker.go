// Package availability runs debounced nickname availability checks for one
// input field.
package availability

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/engineer-profiles/internal/nickname"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
)

// Status is the state of a Checker.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusChecking    Status = "checking"
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusError       Status = "error"
)

// DefaultDelay is how long input must stay unchanged before a query runs.
const DefaultDelay = 500 * time.Millisecond

// User-facing messages.
const (
	MessageTaken        = "this nickname is already in use"
	MessageConnectivity = "could not check nickname availability, check your connection and try again"
)

// Lookup is the store query a Checker runs. profile.Repository satisfies it.
type Lookup interface {
	CheckNicknameDuplicate(ctx context.Context, nickname, excludeProfileID string) (bool, error)
}

// Result is a snapshot of the checker state.
type Result struct {
	Nickname    string `json:"nickname"`
	Status      Status `json:"status"`
	IsAvailable bool   `json:"isAvailable"`
	IsChecking  bool   `json:"isChecking"`
	Error       string `json:"error,omitempty"`
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Checker.
type Option func(*Checker)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(c *Checker) { c.delay = d }
}

// WithAfterFunc replaces the timer source.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Checker) { c.afterFunc = fn }
}

// WithExcludeProfileID ignores the given profile when looking for
// duplicates, so a profile never collides with its own nickname.
func WithExcludeProfileID(id string) Option {
	return func(c *Checker) { c.excludeProfileID = id }
}

// OnChange registers fn for every state transition. fn runs with the
// checker locked and must not call back into it.
func OnChange(fn func(Result)) Option {
	return func(c *Checker) { c.onChange = fn }
}

// Checker debounces input and resolves it to a Status. Every SetInput bumps
// a generation counter; a query result is applied only if its generation
// and input are still current when it returns. Superseded queries are left
// to finish and their results dropped.
type Checker struct {
	lookup           Lookup
	delay            time.Duration
	afterFunc        AfterFunc
	excludeProfileID string
	onChange         func(Result)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	gen    uint64
	input  string
	timer  Timer
	result Result
	closed bool
}

// New creates an idle Checker. Queries run with ctx; Close cancels it.
func New(ctx context.Context, lookup Lookup, opts ...Option) *Checker {
	c := &Checker{
		lookup:    lookup,
		delay:     DefaultDelay,
		afterFunc: realAfterFunc,
		result:    Result{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c
}

// SetInput records a new candidate. Empty input goes idle and invalid input
// fails at once; anything else is queried after the debounce delay.
func (c *Checker) SetInput(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.gen++
	c.input = name
	c.stopTimer()

	if name == "" {
		c.apply(Result{Status: StatusIdle})
		return
	}
	if v := nickname.Validate(name); !v.IsValid {
		c.apply(Result{Nickname: name, Status: StatusError, Error: v.Error})
		return
	}

	gen := c.gen
	c.timer = c.afterFunc(c.delay, func() { c.query(gen, name) })
	c.apply(Result{Nickname: name, Status: StatusChecking, IsChecking: true})
}

// Result returns the current state.
func (c *Checker) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Close stops the pending timer, cancels in-flight queries and ignores any
// later input or result.
func (c *Checker) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimer()
	c.cancel()
}

func (c *Checker) query(gen uint64, name string) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	taken, err := c.lookup.CheckNicknameDuplicate(c.ctx, name, c.excludeProfileID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen || name != c.input {
		return
	}
	switch {
	case err != nil:
		applog.LogWarn(c.ctx, "nickname availability check failed", zap.String("nickname", name), zap.Error(err))
		c.apply(Result{Nickname: name, Status: StatusError, Error: MessageConnectivity})
	case taken:
		c.apply(Result{Nickname: name, Status: StatusUnavailable, Error: MessageTaken})
	default:
		c.apply(Result{Nickname: name, Status: StatusAvailable, IsAvailable: true})
	}
}

func (c *Checker) apply(r Result) {
	c.result = r
	if c.onChange != nil {
		c.onChange(r)
	}
}

func (c *Checker) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
