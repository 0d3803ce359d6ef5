// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package command provides the root command for the LCM agent.
//
//	./lcm [-c /path/of/appsettings.json] [-d /var/lib/opendsc/lcm]
package command

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/opendsc/opendsc/pkg/adapter/metrics"
	"github.com/opendsc/opendsc/pkg/core/log"
	"github.com/opendsc/opendsc/pkg/lcm/certmgr"
	"github.com/opendsc/opendsc/pkg/lcm/config"
	"github.com/opendsc/opendsc/pkg/lcm/executor"
	"github.com/opendsc/opendsc/pkg/lcm/pullclient"
	"github.com/opendsc/opendsc/pkg/lcm/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	dataDir     string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "lcm",
	Short: "OpenDSC Local Configuration Manager",
	Long: `The OpenDSC Local Configuration Manager periodically tests, and
optionally remediates, a node's desired-state configuration, pulling
it from a Pull Server over mTLS or reading it from a local path, and
reports compliance results back.`,
	RunE: serve,
}

func serve(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath, rootCmd.Flags())
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	var (
		certs   *certmgr.Manager
		pull    *pullclient.Client
		bundles *pullclient.BundleStore
		nodeID  string
	)
	if cfg.LCM.ConfigurationSource == config.SourcePull {
		certs, err = certmgr.Load(cfg.LCM.PullServer, dataDir)
		if err != nil {
			return fmt.Errorf("certmgr.Load: %w", err)
		}
		pull = pullclient.New(cfg.LCM.PullServer.ServerURL, certs)
		bundles, err = pullclient.NewBundleStore(filepath.Join(dataDir, "bundles"))
		if err != nil {
			return fmt.Errorf("pullclient.NewBundleStore: %w", err)
		}
		nodeID, err = bootstrapNodeID(ctx, dataDir, cfg, pull)
		if err != nil {
			return fmt.Errorf("bootstrapping node identity: %w", err)
		}
	}

	m := metrics.New()
	if metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr)
	}

	exec := executor.New(cfg.LCM.DscExecutablePath)
	w := worker.New(nodeID, cfg, exec, pull, bundles, certs, m)

	go func() {
		err := config.Watch(ctx, cfgPath, cfgPath, rootCmd.Flags(), w.SetConfig, func(err error) {
			log.Warn(ctx, "configuration reload failed, keeping previous configuration", log.Err("error", err))
		})
		if err != nil {
			log.Error(ctx, "configuration watcher stopped", log.Err("error", err))
		}
	}()

	return w.Run(ctx)
}

// serveMetrics serves the LCM's Prometheus collectors on addr until ctx
// is cancelled, logging a warning rather than failing the process if
// the listener cannot be started, since metrics export is diagnostic
// and never required for enforcement to proceed.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn(ctx, "metrics listener stopped", log.Err("error", err))
	}
}

// bootstrapNodeID returns this node's server-assigned ID, registering
// with the Pull Server on first run and persisting the assigned ID
// under dataDir for every subsequent run.
func bootstrapNodeID(ctx context.Context, dataDir string, cfg *config.Config, pull *pullclient.Client) (string, error) {
	idPath := filepath.Join(dataDir, "node-id")
	if b, err := os.ReadFile(idPath); err == nil {
		return strings.TrimSpace(string(b)), nil
	}
	fqdn, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("reading hostname: %w", err)
	}
	nodeID, err := pull.Register(ctx, cfg.LCM.PullServer.RegistrationKey, fqdn)
	if err != nil {
		return "", fmt.Errorf("registering with pull server: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(idPath, []byte(nodeID), 0o600); err != nil {
		return "", fmt.Errorf("persisting node id: %w", err)
	}
	return nodeID, nil
}

// Execute runs the rootCmd which in turn parses CLI arguments and
// flags and runs the most specific cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixPaths)
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "data directory for bundles, certificates, and node identity")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, disabled if empty")
}

func fixPaths() {
	if cfgPath == "" {
		if v, ok := os.LookupEnv("LCM_CONFIG_FILE"); ok {
			cfgPath = v
		} else {
			cfgPath = config.PlatformConfigPath()
		}
	}
	if dataDir == "" {
		if v, ok := os.LookupEnv("LCM_DATA_DIR"); ok {
			dataDir = v
		} else {
			dataDir = defaultDataDir()
		}
	}
}

func defaultDataDir() string {
	switch {
	case os.Getenv("ProgramData") != "":
		return filepath.Join(os.Getenv("ProgramData"), "OpenDSC", "LCM")
	default:
		return "/var/lib/opendsc/lcm"
	}
}
