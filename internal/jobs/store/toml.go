// Package store persists job definitions in a TOML file.
package store

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/framegraph/internal/jobs"
)

// DefaultPath is used when no path is given.
const DefaultPath = "jobs.toml"

// config is the on-disk layout of the jobs file.
type config struct {
	Version int                     `toml:"version" json:"version"`
	Jobs    map[string]jobs.JobSpec `toml:"jobs" json:"jobs"`
}

// tomlStore implements jobs.Store on a TOML file.
type tomlStore struct {
	mu         sync.RWMutex
	configPath string
	config     *config
	now        func() time.Time
}

// NewTOML creates a TOML-backed store. Call Load before reading.
func NewTOML(configPath string) jobs.Store {
	if configPath == "" {
		configPath = DefaultPath
	}
	return &tomlStore{
		configPath: configPath,
		config:     emptyConfig(),
		now:        time.Now,
	}
}

func emptyConfig() *config {
	return &config{Version: 1, Jobs: make(map[string]jobs.JobSpec)}
}

// Load replaces the in-memory jobs with the file contents. Table keys
// become job IDs when a job does not set one.
func (s *tomlStore) Load() error {
	data, err := os.ReadFile(s.configPath)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.config = emptyConfig()
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return jobs.NewJobError(jobs.ErrCodeConfigError, "failed to read jobs file", err)
	}

	cfg := emptyConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return jobs.NewJobError(jobs.ErrCodeConfigError, "failed to parse jobs file", err)
	}
	if cfg.Jobs == nil {
		cfg.Jobs = make(map[string]jobs.JobSpec)
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	for key, job := range cfg.Jobs {
		if job.ID == "" {
			job.ID = key
		}
		if job.ID != key {
			return jobs.NewJobError(jobs.ErrCodeInvalidJob,
				fmt.Sprintf("job table %q declares id %q", key, job.ID), nil)
		}
		if err := job.Validate(); err != nil {
			return err
		}
		cfg.Jobs[key] = job
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return nil
}

// Save writes the jobs file, creating its directory if needed.
func (s *tomlStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *tomlStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0o755); err != nil {
		return jobs.NewJobError(jobs.ErrCodeConfigError, "failed to create config directory", err)
	}
	data, err := toml.Marshal(s.config)
	if err != nil {
		return jobs.NewJobError(jobs.ErrCodeConfigError, "failed to marshal jobs", err)
	}
	if err := writeFileAtomic(s.configPath, data); err != nil {
		return jobs.NewJobError(jobs.ErrCodeConfigError, "failed to write jobs file", err)
	}
	return nil
}

// writeFileAtomic replaces path through a rename so a watcher never loads a
// half-written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *tomlStore) Add(job jobs.JobSpec) error {
	if err := job.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.config.Jobs[job.ID]; exists {
		return jobs.NewJobError(jobs.ErrCodeJobExists, "job "+job.ID+" already exists", nil)
	}
	now := s.now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.config.Jobs[job.ID] = job
	return s.saveLocked()
}

func (s *tomlStore) Update(id string, job jobs.JobSpec) error {
	job.ID = id
	if err := job.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, exists := s.config.Jobs[id]
	if !exists {
		return jobs.NewJobError(jobs.ErrCodeJobNotFound, "job "+id+" not found", nil)
	}
	job.CreatedAt = prev.CreatedAt
	job.UpdatedAt = s.now().UTC()
	s.config.Jobs[id] = job
	return s.saveLocked()
}

func (s *tomlStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.config.Jobs[id]; !exists {
		return jobs.NewJobError(jobs.ErrCodeJobNotFound, "job "+id+" not found", nil)
	}
	delete(s.config.Jobs, id)
	return s.saveLocked()
}

func (s *tomlStore) Get(id string) (jobs.JobSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.config.Jobs[id]
	return job, exists
}

func (s *tomlStore) All() map[string]jobs.JobSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.config.Jobs)
}

// LoadJob reads path and returns the job with the given ID, with defaults
// applied.
func LoadJob(path, id string) (jobs.JobSpec, error) {
	st := NewTOML(path)
	if err := st.Load(); err != nil {
		return jobs.JobSpec{}, err
	}
	job, ok := st.Get(id)
	if !ok {
		return jobs.JobSpec{}, jobs.NewJobError(jobs.ErrCodeJobNotFound, fmt.Sprintf("job %s not found in %s", id, path), nil)
	}
	return job.WithDefaults(), nil
}
