package datasource

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"scm-scheduler/src/config"
	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/logger"
)

// -----------------------------------------------------------------------------
// ProviderSet holds the date-keyed datasets of a process by name.
// -----------------------------------------------------------------------------

type ProviderSet struct {
	Providers map[string]interfaces.IRowProvider
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewProviderSet(providers []interfaces.IRowProvider, log *logger.Logger) *ProviderSet {
	s := &ProviderSet{
		Providers: make(map[string]interfaces.IRowProvider),
		Logger:    log,
	}

	for _, p := range providers {
		s.Providers[p.Name()] = p
	}

	return s
}

// -----------------------------------------------------------------------------

// NewProviderSetFromConfig builds one provider per configured dataset. db is
// required by the sql backends and ignored by csv.
func NewProviderSetFromConfig(cfg *config.Config, db interfaces.IDatabase, log *logger.Logger) (*ProviderSet, error) {
	s := NewProviderSet(nil, log)

	for name, ds := range cfg.Datasets() {
		var p interfaces.IRowProvider
		switch cfg.Storage.Backend {
		case config.BackendCSV:
			p = NewCSVTable(name, filepath.Join(cfg.Storage.DataDir, ds.File), ds.DateColumn, log)
		case config.BackendSQLite, config.BackendPostgres:
			if db == nil {
				return nil, fmt.Errorf("backend %s needs a database", cfg.Storage.Backend)
			}
			p = NewSQLTable(name, ds.Table, ds.DateColumn, db)
		default:
			return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
		}

		if err := s.AddProvider(p); err != nil {
			return nil, err
		}
	}

	log.Info("Providers ready (%s): %v", cfg.Storage.Backend, s.Names())
	return s, nil
}

// -----------------------------------------------------------------------------

// AddProvider registers a provider under its name
func (s *ProviderSet) AddProvider(p interfaces.IRowProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := p.Name()
	if _, exists := s.Providers[name]; exists {
		return fmt.Errorf("provider %s already exists", name)
	}

	s.Providers[name] = p
	return nil
}

// -----------------------------------------------------------------------------

// ReplaceProvider swaps the provider registered under p.Name()
func (s *ProviderSet) ReplaceProvider(p interfaces.IRowProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Providers[p.Name()] = p
}

// -----------------------------------------------------------------------------

// GetProvider retrieves a provider by name
func (s *ProviderSet) GetProvider(name string) (interfaces.IRowProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.Providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	return p, nil
}

// -----------------------------------------------------------------------------

// Names returns the registered provider names, sorted
func (s *ProviderSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.Providers))
	for name := range s.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

// GetAllProviders returns a list of all providers
func (s *ProviderSet) GetAllProviders() []interfaces.IRowProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]interfaces.IRowProvider, 0, len(s.Providers))
	for _, p := range s.Providers {
		list = append(list, p)
	}
	return list
}
