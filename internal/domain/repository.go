package domain

// JobRepository defines the interface for job persistence
type JobRepository interface {
	// Create creates a new job
	Create(job *Job) error

	// Update updates an existing job
	Update(job *Job) error

	// FindByID finds a job by ID, returning ErrNotFound when absent
	FindByID(id string) (*Job, error)

	// GetStats returns job counts by state
	GetStats() (*JobStats, error)
}

// EgressStatsRepository persists egress endpoint statistics across restarts
type EgressStatsRepository interface {
	// SaveEndpoint upserts the statistics of one endpoint
	SaveEndpoint(endpoint *EgressEndpoint) error

	// LoadEndpoints returns all stored endpoints
	LoadEndpoints() ([]*EgressEndpoint, error)
}
