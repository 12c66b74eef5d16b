package jobs

// Store persists job definitions.
type Store interface {
	// Load reads the backing file. A missing file is an empty store.
	Load() error

	// Save writes the backing file.
	Save() error

	// Add stores a new job; the ID must be unused.
	Add(job JobSpec) error

	// Update replaces an existing job.
	Update(id string, job JobSpec) error

	// Remove deletes a job.
	Remove(id string) error

	// Get retrieves a job by ID.
	Get(id string) (JobSpec, bool)

	// All returns a copy of every job keyed by ID.
	All() map[string]JobSpec
}
