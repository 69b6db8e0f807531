package screenshot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/TechnicallyShaun/askollama/internal/screenshot/client"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/debounce"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/logging"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/metrics"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/ocr"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/pubsub"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/watcher"
)

// Service supervises the pipeline: it owns the settings store, runs the
// directory watcher and hands every event to the dispatcher.
type Service struct {
	config    *Config
	configDir string

	settings   *SettingsStore
	logger     *logging.FileLogger
	ownsLogger bool
	watcher    FileWatcher
	extractor  Extractor
	explainer  Explainer
	broker     *pubsub.Broker
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	dispatcher *Dispatcher

	watchDir string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger instead of opening the log file from config.
func WithServiceLogger(l *logging.FileLogger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithInitialSettings replaces the persisted settings loaded at startup.
func WithInitialSettings(settings Settings) ServiceOption {
	return func(s *Service) {
		s.settings = NewSettingsStore(settings)
	}
}

// WithFileWatcher sets the file watcher.
func WithFileWatcher(w FileWatcher) ServiceOption {
	return func(s *Service) {
		s.watcher = w
	}
}

// WithExtractor sets the text extractor.
func WithExtractor(e Extractor) ServiceOption {
	return func(s *Service) {
		s.extractor = e
	}
}

// WithExplainer sets the explanation client.
func WithExplainer(e Explainer) ServiceOption {
	return func(s *Service) {
		s.explainer = e
	}
}

// NewService creates a pipeline supervisor with all components initialized.
// configDir holds settings.json.
func NewService(cfg *Config, configDir string, opts ...ServiceOption) (*Service, error) {
	// Apply defaults for optional fields
	cfg.ApplyDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Service{
		config:    cfg,
		configDir: configDir,
		broker:    pubsub.NewBroker(),
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		logger, err := NewLogger(cfg, "service")
		if err != nil {
			return nil, err
		}
		s.logger = logger
		s.ownsLogger = true
	}

	if s.settings == nil {
		settings, err := LoadSettings(configDir)
		if err != nil {
			s.logger.Error("failed to load settings, using defaults", err,
				logging.String("dir", configDir),
			)
			settings = DefaultSettings()
		}
		s.settings = NewSettingsStore(settings)
	}

	if s.watcher == nil {
		s.watcher = watcher.New(s.logger.WithComponent("watcher"))
	}
	if s.extractor == nil {
		s.extractor = ocr.NewTesseract(
			ocr.WithCommand(cfg.OCRCommand),
			ocr.WithLanguage(cfg.OCRLanguage),
		)
	}
	if s.explainer == nil {
		s.explainer = client.NewOllamaClient(cfg.LLMURL,
			client.WithModel(cfg.LLMModel),
			client.WithMaxTokens(cfg.MaxTokens),
			client.WithResponseFormat(client.ResponseFormat(cfg.ResponseFormat)),
		)
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.New(s.registry)

	s.dispatcher = NewDispatcher(
		s.settings,
		debounce.NewFixedDelay(cfg.Debounce()),
		s.extractor,
		s.explainer,
		s.broker,
		WithLogger(s.logger),
		WithMetrics(s.metrics),
		WithMaxWorkers(cfg.MaxWorkers),
	)

	return s, nil
}

// NewLogger opens the rotating log file described by cfg.
func NewLogger(cfg *Config, component string) (*logging.FileLogger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logConfig := logging.DefaultConfig().WithMinLevel(level)
	logConfig.Component = component
	if cfg.LogDir != "" {
		logConfig.LogDir = cfg.LogDir
	}
	logger, err := logging.New(logConfig)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// LogPath returns the path of the log file written under cfg.
func LogPath(cfg *Config) string {
	dir := cfg.LogDir
	if dir == "" {
		dir = logging.DefaultConfig().LogDir
	}
	return filepath.Join(dir, logging.DefaultConfig().Prefix+".log")
}

// Settings returns the live settings store.
func (s *Service) Settings() *SettingsStore { return s.settings }

// Broker returns the result broker.
func (s *Service) Broker() *pubsub.Broker { return s.broker }

// Explainer returns the explanation client used by the pipeline.
func (s *Service) Explainer() Explainer { return s.explainer }

// Registry returns the Prometheus registry holding the pipeline metrics.
func (s *Service) Registry() *prometheus.Registry { return s.registry }

// Logger returns the service logger.
func (s *Service) Logger() *logging.FileLogger { return s.logger }

// WatchDir returns the directory being watched, or "" before Run.
func (s *Service) WatchDir() string { return s.watchDir }

// SaveSettings persists the current settings to the config directory.
func (s *Service) SaveSettings() error {
	if err := s.settings.Get().Save(s.configDir); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ReloadSettings replaces the live settings with the persisted ones.
func (s *Service) ReloadSettings() (Settings, error) {
	settings, err := LoadSettings(s.configDir)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	s.settings.Set(settings)
	return settings, nil
}

// Run starts the watcher and blocks until ctx is cancelled or a SIGINT or
// SIGTERM is received. A watcher that fails to start or stops early is logged
// and the service keeps running without events.
func (s *Service) Run(ctx context.Context) error {
	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Tasks share this context; cancelling it abandons in-flight work.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	settings := s.settings.Get()
	s.watchDir = settings.ResolveWatchDir()

	s.logger.Info("starting screenshot service",
		logging.String("watch_dir", s.watchDir),
		logging.Bool("auto_explain", settings.AutoExplain),
		logging.String("ocr_command", s.config.OCRCommand),
		logging.String("llm_url", s.config.LLMURL),
	)

	events, err := s.watcher.Watch(ctx, s.watchDir)
	if err != nil {
		s.logger.Error("watcher failed to start, no screenshots will be processed", err,
			logging.String("watch_dir", s.watchDir),
		)
		events = nil
	} else {
		s.logger.Info("watching for screenshots", logging.String("watch_dir", s.watchDir))
	}

	// Main event loop
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, shutting down")
			return s.shutdown(cancel)

		case sig := <-sigCh:
			s.logger.Info("received signal, shutting down",
				logging.String("signal", sig.String()),
			)
			return s.shutdown(cancel)

		case event, ok := <-events:
			if !ok {
				s.logger.Info("watcher stopped, service keeps running without events",
					logging.String("watch_dir", s.watchDir),
				)
				events = nil
				continue
			}
			s.dispatcher.Dispatch(ctx, event)
		}
	}
}

// shutdown abandons in-flight tasks and releases resources.
func (s *Service) shutdown(cancel context.CancelFunc) error {
	cancel()

	if err := s.watcher.Stop(); err != nil {
		s.logger.Error("error stopping watcher", err)
	}

	s.dispatcher.Wait()
	s.broker.Close()

	s.logger.Info("screenshot service stopped")
	if s.ownsLogger {
		return s.logger.Close()
	}
	return nil
}
