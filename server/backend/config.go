/*
 * Copyright 2025 The Notepair Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package backend

import (
	"fmt"
	"os"
	"time"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// SnapshotPath is the directory of the embedded blob store holding
	// replica snapshots. If empty, replicas are kept in memory only.
	SnapshotPath string `yaml:"SnapshotPath"`

	// FlushDebounce is the delay between the last change of a replica and
	// the flush persisting it. Default is "3s".
	FlushDebounce string `yaml:"FlushDebounce"`

	// PresenceActivityTimeout is the idle duration after which a participant
	// is reported as inactive. Default is "30s".
	PresenceActivityTimeout string `yaml:"PresenceActivityTimeout"`

	// PresenceSweepInterval is the interval of the presence sweeper removing
	// records of vanished connections. Default is "30s".
	PresenceSweepInterval string `yaml:"PresenceSweepInterval"`

	// RestoreLockTTL is the lease duration of the per-session restore lock.
	// Default is "10s".
	RestoreLockTTL string `yaml:"RestoreLockTTL"`

	// HistoryListLimit is the maximum number of history entries returned per
	// listing. Default is 50.
	HistoryListLimit int `yaml:"HistoryListLimit"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.FlushDebounce); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--backend-flush-debounce" flag: %w`,
			c.FlushDebounce,
			err,
		)
	}

	if _, err := time.ParseDuration(c.PresenceActivityTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--presence-activity-timeout" flag: %w`,
			c.PresenceActivityTimeout,
			err,
		)
	}

	if _, err := time.ParseDuration(c.PresenceSweepInterval); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--presence-sweep-interval" flag: %w`,
			c.PresenceSweepInterval,
			err,
		)
	}

	if _, err := time.ParseDuration(c.RestoreLockTTL); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--restore-lock-ttl" flag: %w`,
			c.RestoreLockTTL,
			err,
		)
	}

	return nil
}

// ParseFlushDebounce returns the flush debounce duration.
func (c *Config) ParseFlushDebounce() time.Duration {
	result, err := time.ParseDuration(c.FlushDebounce)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse flush debounce:", err)
		os.Exit(1)
	}

	return result
}

// ParsePresenceActivityTimeout returns the presence activity timeout.
func (c *Config) ParsePresenceActivityTimeout() time.Duration {
	result, err := time.ParseDuration(c.PresenceActivityTimeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse presence activity timeout:", err)
		os.Exit(1)
	}

	return result
}

// ParsePresenceSweepInterval returns the presence sweep interval.
func (c *Config) ParsePresenceSweepInterval() time.Duration {
	result, err := time.ParseDuration(c.PresenceSweepInterval)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse presence sweep interval:", err)
		os.Exit(1)
	}

	return result
}

// ParseRestoreLockTTL returns the restore lock lease duration.
func (c *Config) ParseRestoreLockTTL() time.Duration {
	result, err := time.ParseDuration(c.RestoreLockTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse restore lock ttl:", err)
		os.Exit(1)
	}

	return result
}
