package keystone

// Config holds the build-time options recognized by Collection.Build, per
// spec.md §6.
type Config struct {
	// MaxResolutionDepth bounds how deep a single resolution chain may
	// recurse before failing with DepthExceededError. Default 128.
	MaxResolutionDepth int

	// ValidateOnBuild runs the validation pass described in spec.md §7
	// before returning a Provider. Default true.
	ValidateOnBuild bool

	// EagerSingletons constructs every Singleton descriptor (that isn't
	// already an eager instance) during Build rather than lazily on first
	// resolve. Default true, matching spec.md §6's default.
	EagerSingletons bool

	// Clock timestamps observer events. Defaults to DefaultClock.
	Clock Clock

	// Logger receives observer errors. Disposer errors are not logged;
	// Close returns them. Defaults to DefaultLogger.
	Logger Logger
}

func defaultConfig() Config {
	return Config{
		MaxResolutionDepth: 128,
		ValidateOnBuild:    true,
		EagerSingletons:    true,
		Clock:              DefaultClock,
		Logger:             DefaultLogger,
	}
}

// BuildOption customizes a Config passed to Collection.Build.
type BuildOption func(*Config)

// WithMaxResolutionDepth overrides the default resolution depth limit.
func WithMaxResolutionDepth(n int) BuildOption {
	return func(c *Config) { c.MaxResolutionDepth = n }
}

// WithValidateOnBuild toggles build-time validation.
func WithValidateOnBuild(on bool) BuildOption {
	return func(c *Config) { c.ValidateOnBuild = on }
}

// WithEagerSingletons toggles eager singleton construction at Build time.
func WithEagerSingletons(on bool) BuildOption {
	return func(c *Config) { c.EagerSingletons = on }
}

// WithClock overrides the Clock used to timestamp observer events.
func WithClock(clock Clock) BuildOption {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithLogger overrides the Logger used for observer errors.
func WithLogger(logger Logger) BuildOption {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
