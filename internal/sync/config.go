package sync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an OperationConfig.
type Status string

const (
	StatusActive  Status = "active"
	StatusStopped Status = "stopped"
)

// OperationConfig describes one synchronization pairing. Immutable
// after registration except Status and LastRunAt.
type OperationConfig struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SourceRootID    string          `json:"source_root_id"`
	TargetRootID    string          `json:"target_root_id"`
	Mode            Mode            `json:"mode"`
	ConflictPolicy  ConflictPolicy  `json:"conflict_policy"`
	Propagate       PropagatePolicy `json:"propagate"`
	IncludeSubtrees bool            `json:"include_subtrees"`
	Filter          *Filter         `json:"filter,omitempty"`
	// Schedule is the recurring run interval; zero means manual only.
	Schedule  time.Duration `json:"schedule"`
	Status    Status        `json:"status"`
	LastRunAt time.Time     `json:"last_run_at"`
}

// Validate normalizes defaults and rejects unusable configs.
func (c *OperationConfig) Validate() error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.Mode == "" {
		c.Mode = ModeUnidirectional
	}
	if c.Mode != ModeUnidirectional && c.Mode != ModeBidirectional {
		return fmt.Errorf("unknown sync mode %q", c.Mode)
	}
	if c.ConflictPolicy == "" {
		c.ConflictPolicy = PolicySkip
	}
	if !ValidConflictPolicy(c.ConflictPolicy) {
		return fmt.Errorf("unknown conflict policy %q", c.ConflictPolicy)
	}
	if c.Propagate == "" {
		c.Propagate = PropagateCopyBack
	}
	if c.Propagate != PropagateCopyBack && c.Propagate != PropagateIgnore {
		return fmt.Errorf("unknown propagate policy %q", c.Propagate)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("pairing %s: %w", c.Name, err)
	}
	if c.Schedule < 0 {
		return fmt.Errorf("negative schedule interval")
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	return nil
}
