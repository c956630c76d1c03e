package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Defaults applied by the loader when a field is unset.
const (
	DefaultCycleTime              = 20
	DefaultTarget                 = "alap"
	DefaultHeuristic              = "deep_criticality"
	DefaultMaxResourceBlockCycles = 10000
	DefaultDotPrefix              = "schedule"
	DefaultWorkers                = 8
	DefaultQueueDepth             = 1000
	DefaultJobTimeoutMs           = 30000
)

// DefaultPasses is the pipeline used when the config lists none.
var DefaultPasses = []PassDef{
	{Type: "dec.structure", Name: "decompose"},
	{Type: "sch.list_schedule", Name: "schedule"},
}

// Loader reads a platform YAML file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *PlatformConfig
	onChange []func(*PlatformConfig)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path, logger: slog.Default().With("config", path)}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.path }

// Config returns the current (latest) configuration.
func (l *Loader) Config() *PlatformConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*PlatformConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.logger.Warn("config reload failed, keeping previous platform", "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file. An invalid file
// leaves the current config in place.
func (l *Loader) Reload() (*PlatformConfig, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*PlatformConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*PlatformConfig, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	cfg, err := ParsePlatform(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	return cfg, nil
}

// ParsePlatform decodes a platform document and applies defaults.
func ParsePlatform(data []byte) (*PlatformConfig, error) {
	var cfg PlatformConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills in unset fields.
func ApplyDefaults(cfg *PlatformConfig) {
	if cfg.CycleTime == 0 {
		cfg.CycleTime = DefaultCycleTime
	}
	s := &cfg.Scheduler
	if s.ResourceConstraints == nil {
		on := true
		s.ResourceConstraints = &on
	}
	if s.Target == "" {
		s.Target = DefaultTarget
	}
	if s.Heuristic == "" {
		s.Heuristic = DefaultHeuristic
	}
	if s.MaxResourceBlockCycles == nil {
		n := DefaultMaxResourceBlockCycles
		s.MaxResourceBlockCycles = &n
	}
	if s.DotPrefix == "" {
		s.DotPrefix = DefaultDotPrefix
	}
	if len(cfg.Passes) == 0 {
		cfg.Passes = append([]PassDef(nil), DefaultPasses...)
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = DefaultWorkers
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = DefaultQueueDepth
	}
	if cfg.Engine.JobTimeoutMs == 0 {
		cfg.Engine.JobTimeoutMs = DefaultJobTimeoutMs
	}
}

// LoadProgram reads a program definition from a YAML or JSON file.
func LoadProgram(path string) (*ProgramDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program %s: %w", path, err)
	}
	def, err := ParseProgram(data)
	if err != nil {
		return nil, fmt.Errorf("parse program %s: %w", path, err)
	}
	return def, nil
}

// ParseProgram decodes a program definition.
func ParseProgram(data []byte) (*ProgramDef, error) {
	var def ProgramDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}
