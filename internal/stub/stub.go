package stub

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/invoke"
	"github.com/roach88/mimic/internal/matcher"
)

// DefaultAnswerCallback configures the answer of a stub that is invoked
// before any rule exists. It is called with the stub unlocked and may use
// any builder method.
type DefaultAnswerCallback func(s *Stub)

// DefaultAnswerReturnsNil answers every call with nil.
func DefaultAnswerReturnsNil(s *Stub) {
	s.Returns()
}

// DefaultAnswerForwards answers every call by forwarding to the stub's
// callback.
func DefaultAnswerForwards(s *Stub) {
	s.Forwards()
}

// Stub resolves invocations against scripted rules.
//
// Thread-safety: all methods are safe for concurrent use. Resolution
// (matching and advancing a rule's counter) is serialized; answers run
// outside the lock so they may call back into the stub.
type Stub struct {
	mu sync.Mutex

	// installMu serializes default rule installation, which runs the
	// default answer callback without mu held.
	installMu sync.Mutex

	label         string
	self          any
	callback      any
	invoker       *invoke.Invoker
	factory       *matcher.Factory
	verifier      *matcher.Verifier
	defaultAnswer DefaultAnswerCallback
	logger        *slog.Logger

	rules []*Rule // most recently closed first

	// Statement being built.
	open      bool
	criteria  []matcher.Matcher
	answers   []*Answer
	secondary []CallRequest
	closers   []func()

	err error
}

// Option configures a Stub.
type Option func(*Stub)

// WithSelf sets the value passed to callbacks that take a Self. Defaults to
// the stub itself.
func WithSelf(self any) Option {
	return func(s *Stub) { s.self = self }
}

// WithCallback sets the callback Forwards calls through to.
func WithCallback(callback any) Option {
	return func(s *Stub) { s.callback = callback }
}

// WithInvoker sets the invoker used to run answers.
func WithInvoker(inv *invoke.Invoker) Option {
	return func(s *Stub) { s.invoker = inv }
}

// WithMatcherFactory sets the factory that turns With arguments into
// matchers.
func WithMatcherFactory(f *matcher.Factory) Option {
	return func(s *Stub) { s.factory = f }
}

// WithMatcherVerifier sets the verifier that checks criteria against
// arguments.
func WithMatcherVerifier(v *matcher.Verifier) Option {
	return func(s *Stub) { s.verifier = v }
}

// WithDefaultAnswer sets the callback that configures a stub invoked
// without rules. Defaults to DefaultAnswerReturnsNil.
func WithDefaultAnswer(cb DefaultAnswerCallback) Option {
	return func(s *Stub) { s.defaultAnswer = cb }
}

// WithLogger sets the logger. Defaults to a logger that discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stub) { s.logger = logger }
}

// WithLabel names the stub in logs and errors. Defaults to a UUIDv7.
func WithLabel(label string) Option {
	return func(s *Stub) { s.label = label }
}

// New creates a stub with no rules.
func New(opts ...Option) *Stub {
	s := &Stub{
		callback:      func() {},
		invoker:       invoke.New(),
		factory:       matcher.NewFactory(),
		verifier:      matcher.NewVerifier(),
		defaultAnswer: DefaultAnswerReturnsNil,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s.self = s
	for _, opt := range opts {
		opt(s)
	}
	if s.label == "" {
		s.label = uuid.Must(uuid.NewV7()).String()
	}
	return s
}

// Label returns the stub's label.
func (s *Stub) Label() string { return s.label }

// SetSelf replaces the self value.
func (s *Stub) SetSelf(self any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self = self
}

func (s *Stub) selfValue() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.self
}

// Err returns the latched configuration error, if any.
func (s *Stub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Rules returns the closed rules, most recently closed first.
func (s *Stub) Rules() []*Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Rule(nil), s.rules...)
}

// With closes the current statement and starts a new one that applies to
// argument lists accepted by the given criteria. Values that are not
// matchers must be equal. With() with no criteria only accepts calls
// without arguments; use matcher.AnyNumber() to accept anything.
func (s *Stub) With(criteria ...any) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeRule() != nil {
		return s
	}
	s.open = true
	s.criteria = s.factory.AdaptAll(criteria)
	return s
}

// CloseRule closes the current statement. It returns the latched
// configuration error, if any.
func (s *Stub) CloseRule() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeRule()
}

// closeRule must be called with s.mu held.
func (s *Stub) closeRule() error {
	if s.err != nil {
		return s.err
	}
	if len(s.secondary) > 0 {
		s.answers = append(s.answers, &Answer{Primary: constant(nil, nil), Secondary: s.secondary})
		s.secondary = nil
	}
	if !s.open && len(s.answers) == 0 {
		return nil
	}

	open, criteria, answers := s.open, s.criteria, s.answers
	s.open, s.criteria, s.answers = false, nil, nil
	for _, fn := range s.closers {
		fn()
	}
	s.closers = nil

	if len(answers) == 0 {
		s.err = newUnusedCriteriaError(matcher.Describe(criteria))
		return s.err
	}
	if !open {
		criteria = []matcher.Matcher{matcher.AnyNumber()}
	}

	rule := NewRule(criteria, answers)
	s.rules = append([]*Rule{rule}, s.rules...)

	s.logger.Debug("rule closed",
		"stub", s.label,
		"criteria", matcher.Describe(criteria),
		"answers", len(answers),
		"rules", len(s.rules))
	return nil
}

// addAnswers appends answers to the current statement. Pending secondary
// requests attach to the first of them.
func (s *Stub) addAnswers(answers ...*Answer) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil || len(answers) == 0 {
		return s
	}
	if len(s.secondary) > 0 {
		answers[0].Secondary = append(s.secondary, answers[0].Secondary...)
		s.secondary = nil
	}
	s.answers = append(s.answers, answers...)
	return s
}

// onClose registers fn to run when the current statement closes.
func (s *Stub) onClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

func (s *Stub) addSecondary(requests ...CallRequest) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil {
		s.secondary = append(s.secondary, requests...)
	}
	return s
}

// Does adds one answer per callback. Each callback receives the
// invocation's arguments individually.
func (s *Stub) Does(callbacks ...any) *Stub {
	answers := make([]*Answer, len(callbacks))
	for i, cb := range callbacks {
		answers[i] = &Answer{Primary: CallRequest{Callback: cb, SuffixArguments: true}}
	}
	return s.addAnswers(answers...)
}

// DoesWith adds an answer built from an explicit request.
func (s *Stub) DoesWith(req CallRequest) *Stub {
	return s.addAnswers(&Answer{Primary: req})
}

// Returns adds one answer per value. With no values it adds a single answer
// returning nil.
func (s *Stub) Returns(values ...any) *Stub {
	if len(values) == 0 {
		values = []any{nil}
	}
	answers := make([]*Answer, len(values))
	for i, v := range values {
		answers[i] = &Answer{Primary: constant(v, nil)}
	}
	return s.addAnswers(answers...)
}

// Throws adds one answer per error. With no errors it adds a single answer
// returning ErrStubbed.
func (s *Stub) Throws(errs ...error) *Stub {
	if len(errs) == 0 {
		errs = []error{ErrStubbed}
	}
	answers := make([]*Answer, len(errs))
	for i, err := range errs {
		answers[i] = &Answer{Primary: constant(nil, err)}
	}
	return s.addAnswers(answers...)
}

// ReturnsArgument adds an answer returning the argument at position.
// Negative positions count from the end.
func (s *Stub) ReturnsArgument(position int) *Stub {
	return s.addAnswers(&Answer{Primary: withArguments(func(args *call.Arguments) (any, error) {
		return args.Get(position)
	})})
}

// ReturnsSelf adds an answer returning the stub's self value.
func (s *Stub) ReturnsSelf() *Stub {
	return s.addAnswers(&Answer{Primary: CallRequest{
		Callback:   func() any { return s.selfValue() },
		PrefixSelf: Prefix(false),
	}})
}

// Forwards adds an answer that calls the stub's callback with the
// invocation's arguments.
func (s *Stub) Forwards() *Stub {
	return s.ForwardsWith(CallRequest{SuffixArguments: true})
}

// ForwardsWith adds an answer that calls the stub's callback, assembling
// arguments as req describes. req.Callback is ignored.
func (s *Stub) ForwardsWith(req CallRequest) *Stub {
	req.Callback = s.callback
	return s.addAnswers(&Answer{Primary: req})
}

// Calls adds secondary requests calling each callback with the invocation's
// arguments individually. They run before the next answer's primary.
func (s *Stub) Calls(callbacks ...any) *Stub {
	requests := make([]CallRequest, len(callbacks))
	for i, cb := range callbacks {
		requests[i] = CallRequest{Callback: cb, SuffixArguments: true}
	}
	return s.addSecondary(requests...)
}

// CallsWith adds a secondary request.
func (s *Stub) CallsWith(req CallRequest) *Stub {
	return s.addSecondary(req)
}

// CallsArgument adds secondary requests calling the arguments at the given
// positions, with no arguments. With no positions it calls the first
// argument. Missing or non-callable arguments are skipped.
func (s *Stub) CallsArgument(positions ...int) *Stub {
	if len(positions) == 0 {
		positions = []int{0}
	}
	requests := make([]CallRequest, len(positions))
	for i, p := range positions {
		requests[i] = s.callArgument(p, CallRequest{})
	}
	return s.addSecondary(requests...)
}

// CallsArgumentWith adds a secondary request calling the argument at
// position, assembling its arguments as req describes. req.Callback is
// ignored.
func (s *Stub) CallsArgumentWith(position int, req CallRequest) *Stub {
	return s.addSecondary(s.callArgument(position, req))
}

func (s *Stub) callArgument(position int, req CallRequest) CallRequest {
	return withArguments(func(args *call.Arguments) (any, error) {
		cb, err := args.Get(position)
		if err != nil || cb == nil {
			return nil, nil
		}
		r := req
		r.Callback = cb
		return s.execute(r, args)
	})
}

// SetsArgument adds a secondary request writing value into the argument at
// position. The write is visible to everyone holding the arguments.
func (s *Stub) SetsArgument(position int, value any) *Stub {
	return s.addSecondary(withArguments(func(args *call.Arguments) (any, error) {
		return nil, args.Set(position, value)
	}))
}

// SetsNamedArgument adds a secondary request writing value into the named
// argument.
func (s *Stub) SetsNamedArgument(name string, value any) *Stub {
	return s.addSecondary(withArguments(func(args *call.Arguments) (any, error) {
		args.SetNamed(name, value)
		return nil, nil
	}))
}

// Invoke calls the stub with positional arguments.
func (s *Stub) Invoke(values ...any) (any, error) {
	return s.InvokeWith(call.NewArguments(values...))
}

// InvokeWith resolves the answer for args and runs it: secondary requests
// first, their outcomes discarded, then the primary, whose outcome is
// returned.
func (s *Stub) InvokeWith(args *call.Arguments) (any, error) {
	if args == nil {
		args = call.NewArguments()
	}
	answer, err := s.resolve(args)
	if err != nil {
		return nil, err
	}

	for _, req := range answer.Secondary {
		if _, err := s.execute(req, args); err != nil {
			s.logger.Debug("secondary request failed", "stub", s.label, "error", err)
		}
	}
	return s.execute(answer.Primary, args)
}

func (s *Stub) resolve(args *call.Arguments) (*Answer, error) {
	s.mu.Lock()
	err := s.closeRule()
	empty := len(s.rules) == 0
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if empty {
		if err := s.installDefaultRule(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeRule(); err != nil {
		return nil, err
	}

	values := args.Values()
	for i, rule := range s.rules {
		if !s.verifier.Matches(rule.criteria, values) {
			continue
		}
		answer, err := rule.Next()
		if err != nil {
			s.err = err
			return nil, err
		}
		s.logger.Debug("rule matched",
			"stub", s.label,
			"rule", i,
			"arguments", args.String(),
			"called", rule.CalledCount())
		return answer, nil
	}
	return nil, fmt.Errorf("stub %s: %w: %s", s.label, ErrNoMatchingRule, args)
}

// installDefaultRule runs the default answer callback once, for the first
// of any concurrent invocations that find the stub without rules.
func (s *Stub) installDefaultRule() error {
	s.installMu.Lock()
	defer s.installMu.Unlock()

	s.mu.Lock()
	empty := len(s.rules) == 0
	s.mu.Unlock()
	if !empty {
		return nil
	}

	s.logger.Debug("installing default rule", "stub", s.label)
	s.defaultAnswer(s)
	return s.CloseRule()
}

func (s *Stub) execute(req CallRequest, args *call.Arguments) (any, error) {
	return s.invoker.CallWith(req.Callback, req.arguments(s.selfValue(), args))
}
