// Package server is the knowledge-graph backend that hg talks to: subgraph
// queries over the triple store, autocomplete, the taxonomy table and LLM
// text generation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/herbgraph/internal/kgstore"
	"github.com/vanderheijden86/herbgraph/pkg/config"
	"github.com/vanderheijden86/herbgraph/pkg/watcher"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Store          *kgstore.Store
	Generator      Generator // nil disables /generate and /script_suggestions
	Logger         *zap.Logger
	Limits         kgstore.Limits
	MaxSuggestions int
	AllowedOrigins []string
	TaxonomyPath   string
	NamesPath      string
	Watch          bool // reload TaxonomyPath and NamesPath when they change
	WatchOptions   []watcher.Option
}

// OptionsFromConfig maps the server config section onto Options.
func OptionsFromConfig(cfg config.ServerConfig) Options {
	lim := kgstore.DefaultLimits()
	if cfg.HiddenPredicates != nil {
		lim.Hidden = cfg.HiddenPredicates
	}
	if cfg.MaxQueryResults > 0 {
		lim.MaxResults = cfg.MaxQueryResults
	}
	if cfg.MaxDetailProperties > 0 {
		lim.MaxProperties = cfg.MaxDetailProperties
	}
	return Options{
		Limits:         lim,
		MaxSuggestions: cfg.MaxSuggestions,
		AllowedOrigins: cfg.AllowedOrigins,
		TaxonomyPath:   cfg.TaxonomyPath,
		NamesPath:      cfg.NamesPath,
	}
}

// Server serves the knowledge-graph API.
type Server struct {
	opts     Options
	store    *kgstore.Store
	gen      Generator
	log      *zap.Logger
	metrics  *Metrics
	validate *validator.Validate
	names    *NameIndex
	catalog  *Catalog
	reloads  singleflight.Group
}

// New builds a Server and performs the initial load of the name list and
// taxonomy table. Missing data files leave the corresponding endpoint empty.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	if opts.Limits.MaxResults <= 0 && opts.Limits.MaxProperties <= 0 && opts.Limits.Hidden == nil {
		opts.Limits = kgstore.DefaultLimits()
	}
	gen := opts.Generator
	if gen == nil {
		gen = unavailableGenerator{err: ErrNoAPIKey}
	}

	s := &Server{
		opts:     opts,
		store:    opts.Store,
		gen:      gen,
		log:      opts.Logger,
		metrics:  NewMetrics(),
		validate: newValidator(),
		names:    NewNameIndex(nil),
		catalog:  NewCatalog(nil),
	}
	if opts.NamesPath != "" {
		if err := s.ReloadNames(); err != nil {
			s.log.Warn("name list not loaded", zap.String("path", opts.NamesPath), zap.Error(err))
		}
	}
	if opts.TaxonomyPath != "" {
		if err := s.ReloadTaxonomy(); err != nil {
			s.log.Warn("taxonomy not loaded", zap.String("path", opts.TaxonomyPath), zap.Error(err))
		}
	}
	return s, nil
}

// Metrics returns the server's metric collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Names returns the autocomplete index.
func (s *Server) Names() *NameIndex { return s.names }

// Catalog returns the taxonomy table.
func (s *Server) Catalog() *Catalog { return s.catalog }

// ReloadNames rereads the name list. Concurrent calls share one read.
func (s *Server) ReloadNames() error {
	_, err, _ := s.reloads.Do("names", func() (any, error) {
		names, err := LoadNames(s.opts.NamesPath)
		s.metrics.ObserveReload("names", err)
		if err != nil {
			return nil, err
		}
		s.names.Replace(names)
		s.log.Info("name list loaded", zap.String("path", s.opts.NamesPath), zap.Int("names", len(names)))
		return nil, nil
	})
	return err
}

// ReloadTaxonomy rereads the taxonomy table. Concurrent calls share one read.
func (s *Server) ReloadTaxonomy() error {
	_, err, _ := s.reloads.Do("taxonomy", func() (any, error) {
		entries, err := LoadTaxonomy(s.opts.TaxonomyPath)
		s.metrics.ObserveReload("taxonomy", err)
		if err != nil {
			return nil, err
		}
		s.catalog.Replace(entries)
		s.log.Info("taxonomy loaded", zap.String("path", s.opts.TaxonomyPath), zap.Int("genera", len(entries)))
		return nil, nil
	})
	return err
}

// newWatcher registers the data files for hot reload. A failed reload keeps
// the previous contents.
func (s *Server) newWatcher() (*watcher.Watcher, error) {
	opts := append([]watcher.Option{
		watcher.WithOnError(func(path string, err error) {
			s.log.Warn("watch error", zap.String("path", path), zap.Error(err))
		}),
	}, s.opts.WatchOptions...)
	w := watcher.New(opts...)

	reload := func(name string, fn func() error) func() {
		return func() {
			if err := fn(); err != nil {
				s.log.Error("reload failed", zap.String("file", name), zap.Error(err))
			}
		}
	}
	if s.opts.NamesPath != "" {
		if err := w.Add(s.opts.NamesPath, reload("names", s.ReloadNames)); err != nil {
			return nil, fmt.Errorf("watch %s: %w", s.opts.NamesPath, err)
		}
	}
	if s.opts.TaxonomyPath != "" {
		if err := w.Add(s.opts.TaxonomyPath, reload("taxonomy", s.ReloadTaxonomy)); err != nil {
			return nil, fmt.Errorf("watch %s: %w", s.opts.TaxonomyPath, err)
		}
	}
	return w, nil
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	var w *watcher.Watcher
	if s.opts.Watch && (s.opts.NamesPath != "" || s.opts.TaxonomyPath != "") {
		var err error
		if w, err = s.newWatcher(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if w != nil {
		g.Go(func() error {
			if err := w.Run(ctx); err != nil {
				s.log.Warn("file watcher stopped", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}
