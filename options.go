package renderpool

import (
	"fmt"
	"time"
)

// Capability identifies a worker class. Workers of different classes
// are launched with different options and are never interchangeable.
type Capability string

// DefaultClass is the class used by jobs that do not request one.
const DefaultClass Capability = "plain"

const (
	DefaultClassCap       = 2
	defaultPerWorkerLimit = 1
	defaultJobTimeout     = 30 * time.Second
	defaultRelaunchEvery  = 500 * time.Millisecond
	defaultRelaunchBurst  = 2
)

// LaunchOptions are handed verbatim to the Launcher when a worker of
// the owning class is started. The pool never interprets them.
type LaunchOptions struct {
	// Flags are extra command line flags for the worker process.
	Flags []string

	// ExtensionDirs are paths to extensions the worker should load
	// (e.g. a content blocker for that class).
	ExtensionDirs []string

	// Env holds additional environment variables.
	Env map[string]string
}

// ClassConfig configures one capability class.
type ClassConfig struct {
	// Cap is the maximum number of live workers of this class.
	// In-flight launches count toward the cap. Zero disables the class:
	// jobs requiring it are rejected at enqueue time.
	Cap int

	// Warm is how many workers to launch during pool construction.
	// Clamped to Cap. Any warm-up launch failure is fatal to New.
	Warm int

	// Launch is passed to the Launcher for every worker of this class.
	Launch LaunchOptions
}

// Options configure a Pool.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type Options struct {
	// Classes maps each capability class to its configuration.
	// Defaults to a single DefaultClass with DefaultClassCap workers.
	Classes map[Capability]ClassConfig

	// PerWorkerLimit bounds concurrent pages open on one worker.
	// A worker that timed out still holds its page slot until the
	// stale job actually returns.
	PerWorkerLimit int

	// JobTimeout is the global per-job timeout raced against every
	// dispatched job.
	JobTimeout time.Duration

	// RelaunchEvery and RelaunchBurst throttle crash replenishment so
	// a flapping worker cannot trigger a relaunch storm.
	RelaunchEvery time.Duration
	RelaunchBurst int

	// Metrics receives pool lifecycle counters. Defaults to NoopMetrics.
	Metrics MetricsPolicy
}

func (o *Options) FillDefaults() {
	if o.Classes == nil {
		o.Classes = map[Capability]ClassConfig{
			DefaultClass: {Cap: DefaultClassCap},
		}
	}
	if o.PerWorkerLimit <= 0 {
		o.PerWorkerLimit = defaultPerWorkerLimit
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = defaultJobTimeout
	}
	if o.RelaunchEvery <= 0 {
		o.RelaunchEvery = defaultRelaunchEvery
	}
	if o.RelaunchBurst <= 0 {
		o.RelaunchBurst = defaultRelaunchBurst
	}
	if o.Metrics == nil {
		o.Metrics = &NoopMetrics{}
	}
	for class, cc := range o.Classes {
		if cc.Warm > cc.Cap {
			cc.Warm = cc.Cap
			o.Classes[class] = cc
		}
	}
}

// clone deep-copies o so a snapshot cannot alias the pool's live
// configuration. Metrics is shared intentionally: it is a policy
// handle, not state.
func (o Options) clone() Options {
	c := o
	c.Classes = make(map[Capability]ClassConfig, len(o.Classes))
	for class, cc := range o.Classes {
		cc.Launch = cc.Launch.clone()
		c.Classes[class] = cc
	}
	return c
}

func (lo LaunchOptions) clone() LaunchOptions {
	c := lo
	if lo.Flags != nil {
		c.Flags = append([]string(nil), lo.Flags...)
	}
	if lo.ExtensionDirs != nil {
		c.ExtensionDirs = append([]string(nil), lo.ExtensionDirs...)
	}
	if lo.Env != nil {
		c.Env = make(map[string]string, len(lo.Env))
		for k, v := range lo.Env {
			c.Env[k] = v
		}
	}
	return c
}

// validate runs after FillDefaults, so only genuinely broken
// configurations remain to be caught here.
func (o *Options) validate() error {
	anyCap := false
	for class, cc := range o.Classes {
		if class == "" {
			return fmt.Errorf("%w: empty capability class name", ErrBadConfig)
		}
		if cc.Cap < 0 {
			return fmt.Errorf("%w: class %q has negative cap", ErrBadConfig, class)
		}
		if cc.Warm < 0 {
			return fmt.Errorf("%w: class %q has negative warm count", ErrBadConfig, class)
		}
		if cc.Cap > 0 {
			anyCap = true
		}
	}
	if !anyCap {
		return fmt.Errorf("%w: no capability class with a positive cap", ErrBadConfig)
	}
	return nil
}
