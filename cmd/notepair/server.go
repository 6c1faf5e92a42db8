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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/notepair-team/notepair/server"
	"github.com/notepair-team/notepair/server/backend/database/mongo"
	"github.com/notepair-team/notepair/server/logging"
)

var gracefulTimeout = 10 * time.Second

var (
	flagConfPath string
	flagLogLevel string

	pingInterval time.Duration

	flushDebounce           time.Duration
	presenceActivityTimeout time.Duration
	presenceSweepInterval   time.Duration
	restoreLockTTL          time.Duration

	mongoConnectionURI     string
	mongoConnectionTimeout time.Duration
	mongoNotepairDatabase  string
	mongoPingTimeout       time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start Notepair server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.Transport.PingInterval = pingInterval.String()

			conf.Backend.FlushDebounce = flushDebounce.String()
			conf.Backend.PresenceActivityTimeout = presenceActivityTimeout.String()
			conf.Backend.PresenceSweepInterval = presenceSweepInterval.String()
			conf.Backend.RestoreLockTTL = restoreLockTTL.String()

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI:     mongoConnectionURI,
					ConnectionTimeout: mongoConnectionTimeout.String(),
					NotepairDatabase:  mongoNotepairDatabase,
					PingTimeout:       mongoPingTimeout.String(),
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}

			n, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := n.Start(); err != nil {
				return err
			}

			if code := handleSignal(n); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(n *server.Notepair) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-n.ShutdownCh():
		// notepair is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := n.Shutdown(graceful); err != nil {
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().IntVar(
		&conf.Transport.Port,
		"transport-port",
		server.DefaultTransportPort,
		"Transport port",
	)
	cmd.Flags().StringVar(
		&conf.Transport.AuthSecret,
		"auth-secret",
		server.DefaultAuthSecret,
		"HMAC secret used to verify connection tokens",
	)
	cmd.Flags().DurationVar(
		&pingInterval,
		"ping-interval",
		server.DefaultPingInterval,
		"Interval of keepalive pings to connections",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.SnapshotPath,
		"backend-snapshot-path",
		"",
		"Directory of the on-disk replica snapshot store. Empty keeps snapshots in memory.",
	)
	cmd.Flags().DurationVar(
		&flushDebounce,
		"backend-flush-debounce",
		server.DefaultFlushDebounce,
		"Debounce window between replica edits and the durable flush",
	)
	cmd.Flags().DurationVar(
		&presenceActivityTimeout,
		"backend-presence-activity-timeout",
		server.DefaultPresenceActivityTimeout,
		"Inactivity window after which a participant is reported inactive",
	)
	cmd.Flags().DurationVar(
		&presenceSweepInterval,
		"backend-presence-sweep-interval",
		server.DefaultPresenceSweepInterval,
		"Interval between sweeps of stale presence records",
	)
	cmd.Flags().DurationVar(
		&restoreLockTTL,
		"backend-restore-lock-ttl",
		server.DefaultRestoreLockTTL,
		"TTL of the exclusive snapshot restore lock",
	)
	cmd.Flags().IntVar(
		&conf.Backend.HistoryListLimit,
		"backend-history-list-limit",
		server.DefaultHistoryListLimit,
		"Maximum number of audit history entries returned per session",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoNotepairDatabase,
		"mongo-notepair-database",
		server.DefaultMongoNotepairDatabase,
		"Notepair's database name in MongoDB",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)

	rootCmd.AddCommand(cmd)
}
