// Package store persists pairing configs and run history in a bbolt
// file. It is the durability collaborator of the orchestrator; the
// engine itself never reads from it on the hot path.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"drivesync/internal/sync"
)

const (
	pairingsBucket = "Pairings"
	runsBucket     = "Runs"
)

// Store wraps the bbolt handle.
type Store struct {
	conn *bbolt.DB
}

// Open creates or opens the database file. The open timeout guards
// against two processes deadlocking on the same file.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{pairingsBucket, runsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{conn: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveConfig upserts one pairing config.
func (s *Store) SaveConfig(cfg *sync.OperationConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal pairing: %w", err)
	}
	return s.conn.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(pairingsBucket)).Put([]byte(cfg.ID), data)
	})
}

// GetConfig loads one pairing config; (nil, nil) when absent.
func (s *Store) GetConfig(id string) (*sync.OperationConfig, error) {
	var cfg *sync.OperationConfig
	err := s.conn.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(pairingsBucket)).Get([]byte(id))
		if v == nil {
			return nil
		}
		cfg = &sync.OperationConfig{}
		return json.Unmarshal(v, cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListConfigs returns every stored pairing config.
func (s *Store) ListConfigs() ([]*sync.OperationConfig, error) {
	var out []*sync.OperationConfig
	err := s.conn.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(pairingsBucket)).ForEach(func(k, v []byte) error {
			var cfg sync.OperationConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return fmt.Errorf("decode pairing %s: %w", string(k), err)
			}
			out = append(out, &cfg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteConfig removes a pairing config and its run history.
func (s *Store) DeleteConfig(id string) error {
	return s.conn.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(pairingsBucket)).Delete([]byte(id)); err != nil {
			return err
		}
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		prefix := runKeyPrefix(id)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveRun appends one run result to the history of its pairing.
func (s *Store) SaveRun(r *sync.RunResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return s.conn.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).Put(runKey(r), data)
	})
}

// RunsFor returns the persisted history of one pairing, oldest first.
func (s *Store) RunsFor(configID string) ([]*sync.RunResult, error) {
	var out []*sync.RunResult
	err := s.conn.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		prefix := runKeyPrefix(configID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r sync.RunResult
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode run %s: %w", string(k), err)
			}
			out = append(out, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PruneRuns deletes run results that ended before the threshold and
// returns how many were removed.
func (s *Store) PruneRuns(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := s.conn.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r sync.RunResult
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode run %s: %w", string(k), err)
			}
			if !r.EndedAt.IsZero() && r.EndedAt.Before(cutoff) {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// runKey orders runs of one pairing chronologically under a shared
// prefix, so history reads are a single cursor scan.
func runKey(r *sync.RunResult) []byte {
	return []byte(fmt.Sprintf("%s/%020d/%s", r.ConfigID, r.StartedAt.UnixNano(), r.RunID))
}

func runKeyPrefix(configID string) []byte {
	return []byte(configID + "/")
}
