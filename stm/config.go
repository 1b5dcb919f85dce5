package stm

// EnabledState controls whether Transact starts real transactions.
type EnabledState int

const (
	// StateEnabled runs transactions normally.
	StateEnabled EnabledState = iota

	// StateDisabled runs Transact bodies directly, without recording, and
	// reports Committed.
	StateDisabled

	// StateForcedEnabled is StateEnabled that SetEnabled cannot change.
	StateForcedEnabled

	// StateForcedDisabled is StateDisabled that SetEnabled cannot change.
	StateForcedDisabled
)

// IsEnabled reports whether transactions run in this state.
func (s EnabledState) IsEnabled() bool {
	return s == StateEnabled || s == StateForcedEnabled
}

// IsForced reports whether the state is locked against SetEnabled.
func (s EnabledState) IsForced() bool {
	return s == StateForcedEnabled || s == StateForcedDisabled
}

// RetryPolicy selects which nests are rolled back and re-run once before
// committing. Retrying exercises the rollback path of code that would
// otherwise always commit.
type RetryPolicy int

const (
	// RetryNone commits on the first successful run.
	RetryNone RetryPolicy = iota

	// RetryNonNested retries only outermost transactions.
	RetryNonNested

	// RetryNestedToo retries every nest.
	RetryNestedToo
)

// ValidationLevel controls detection of Open sections that modify memory
// already logged by the enclosing transaction.
type ValidationLevel int

const (
	// ValidationDisabled performs no detection.
	ValidationDisabled ValidationLevel = iota

	// ValidationWarn logs a warning for each detected hazard.
	ValidationWarn

	// ValidationError logs an error for each detected hazard. The
	// transaction result is unaffected.
	ValidationError
)

// InternalAbortAction selects what InternalAbort does.
type InternalAbortAction int

const (
	// InternalAbortAbort unwinds the innermost nest as AbortedByLanguage.
	InternalAbortAbort InternalAbortAction = iota

	// InternalAbortCrash panics with an error wrapping ErrInternalAbort.
	InternalAbortCrash
)

// Config is the runtime configuration of a Thread.
//
// Use DefaultConfig() for production defaults.
type Config struct {
	// Enabled controls whether Transact starts transactions.
	// Default: StateEnabled
	Enabled EnabledState

	// Retry selects nests that are rolled back and re-run once.
	// Default: RetryNone
	Retry RetryPolicy

	// MemoryValidation controls Open-section hazard detection.
	// Default: ValidationDisabled
	MemoryValidation ValidationLevel

	// EnsureOnInternalAbort logs an error whenever InternalAbort fires, in
	// addition to the configured action.
	// Default: false
	EnsureOnInternalAbort bool

	// InternalAbortAction selects what InternalAbort does.
	// Default: InternalAbortAbort
	InternalAbortAction InternalAbortAction
}

// DefaultConfig returns an enabled, non-retrying, non-validating config.
func DefaultConfig() Config {
	return Config{
		Enabled:               StateEnabled,
		Retry:                 RetryNone,
		MemoryValidation:      ValidationDisabled,
		EnsureOnInternalAbort: false,
		InternalAbortAction:   InternalAbortAbort,
	}
}

// Config returns the thread's current configuration.
func (th *Thread) Config() Config {
	return th.cfg
}

// Configure replaces the configuration and returns a func restoring the
// previous one. A forced enabled state survives Configure.
//
//	restore := th.Configure(cfg)
//	defer restore()
func (th *Thread) Configure(cfg Config) (restore func()) {
	prev := th.cfg
	if prev.Enabled.IsForced() {
		cfg.Enabled = prev.Enabled
	}
	th.cfg = cfg
	return func() { th.cfg = prev }
}

// SetEnabled changes the enabled state. It reports false, leaving the state
// unchanged, when the current state is forced.
func (th *Thread) SetEnabled(state EnabledState) bool {
	if th.cfg.Enabled.IsForced() {
		return false
	}
	th.cfg.Enabled = state
	return true
}

// SetRetry changes the retry policy.
func (th *Thread) SetRetry(policy RetryPolicy) {
	th.cfg.Retry = policy
}

// SetMemoryValidation changes the memory validation level.
func (th *Thread) SetMemoryValidation(level ValidationLevel) {
	th.cfg.MemoryValidation = level
}

// SetEnsureOnInternalAbort toggles error logging on internal aborts.
func (th *Thread) SetEnsureOnInternalAbort(on bool) {
	th.cfg.EnsureOnInternalAbort = on
}

// SetInternalAbortAction changes what InternalAbort does.
func (th *Thread) SetInternalAbortAction(action InternalAbortAction) {
	th.cfg.InternalAbortAction = action
}
