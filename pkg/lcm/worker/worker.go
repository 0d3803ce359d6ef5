// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package worker implements the LCM's scheduled enforcement loop: the
// Starting/Monitoring/Remediating/ReloadingConfig/Stopped state
// machine that resolves a configuration, drives the DSC executor, and
// submits compliance reports on a configurable, hot-reloadable
// interval.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/opendsc/opendsc/pkg/adapter/metrics"
	"github.com/opendsc/opendsc/pkg/core/cerr"
	"github.com/opendsc/opendsc/pkg/core/log"
	"github.com/opendsc/opendsc/pkg/core/model"
	"github.com/opendsc/opendsc/pkg/lcm/certmgr"
	"github.com/opendsc/opendsc/pkg/lcm/config"
	"github.com/opendsc/opendsc/pkg/lcm/executor"
	"github.com/opendsc/opendsc/pkg/lcm/pullclient"
	"github.com/opendsc/opendsc/pkg/wire"
)

// State names one position in the worker's state machine, exposed for
// status reporting and tests.
type State string

// Valid State values.
const (
	StateStarting        State = "Starting"
	StateMonitoring      State = "Monitoring"
	StateRemediating     State = "Remediating"
	StateReloadingConfig State = "ReloadingConfig"
	StateStopped         State = "Stopped"
)

// pollInterval is the interruptible delay's granularity: how often it
// wakes to check for cancellation or a configuration reload.
const pollInterval = time.Second

// errorBackoffCap bounds how long the worker sleeps after a cycle
// failure, regardless of the configured interval.
const errorBackoffCap = 60 * time.Second

// Worker drives one node's enforcement loop.
type Worker struct {
	nodeID   string
	executor *executor.Executor
	pull     *pullclient.Client
	bundles  *pullclient.BundleStore
	certs    *certmgr.Manager

	cfg      atomic.Pointer[config.Config]
	reloadCh chan struct{}
	state    atomic.Value // State
	metrics  *metrics.Metrics
}

// New builds a Worker for nodeID using initial as its first accepted
// configuration. m may be nil, in which case cycle metrics are not
// recorded.
func New(
	nodeID string,
	initial *config.Config,
	exec *executor.Executor,
	pull *pullclient.Client,
	bundles *pullclient.BundleStore,
	certs *certmgr.Manager,
	m *metrics.Metrics,
) *Worker {
	w := &Worker{
		nodeID:   nodeID,
		executor: exec,
		pull:     pull,
		bundles:  bundles,
		certs:    certs,
		reloadCh: make(chan struct{}, 1),
		metrics:  m,
	}
	w.cfg.Store(initial)
	w.state.Store(StateStarting)
	return w
}

// State returns the worker's current state.
func (w *Worker) State() State {
	return w.state.Load().(State)
}

// SetConfig publishes c as the worker's current configuration and
// wakes an in-progress interruptible delay. It is the monitor side of
// "the LCM's current configuration snapshot is read via a monitor
// that publishes new values atomically": readers always observe a
// consistent *config.Config, never a partially updated one.
func (w *Worker) SetConfig(c *config.Config) {
	w.cfg.Store(c)
	select {
	case w.reloadCh <- struct{}{}:
	default:
	}
}

// Run drives the worker loop until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			w.state.Store(StateStopped)
			return nil
		}
		cfg := w.cfg.Load()

		var remediate bool
		switch cfg.LCM.ConfigurationMode {
		case config.ModeRemediate:
			w.state.Store(StateRemediating)
			remediate = true
		default:
			w.state.Store(StateMonitoring)
		}

		interval := cfg.LCM.ConfigurationModeInterval
		if err := w.runCycle(ctx, cfg, remediate); err != nil {
			if ctx.Err() != nil {
				w.state.Store(StateStopped)
				return nil
			}
			log.Error(ctx, "enforcement cycle failed", log.Err("error", err))
			interval = min(interval, errorBackoffCap)
		}

		if !w.interruptibleDelay(ctx, interval) {
			w.state.Store(StateStopped)
			return nil
		}
	}
}

// interruptibleDelay sleeps for d, polling roughly every second for
// cancellation or a configuration reload, either of which ends the
// delay early. Returns false if the delay ended due to cancellation.
func (w *Worker) interruptibleDelay(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		wait := remaining
		if wait > pollInterval {
			wait = pollInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-w.reloadCh:
			timer.Stop()
			w.state.Store(StateReloadingConfig)
			return true
		case <-timer.C:
		}
	}
}

// runCycle executes one Monitoring or Remediating cycle per §4.8.
func (w *Worker) runCycle(ctx context.Context, cfg *config.Config, remediate bool) error {
	pathBefore := cfg.LCM.ConfigurationPath
	modeBefore := cfg.LCM.ConfigurationMode
	path, err := w.resolvePath(ctx, cfg)
	if err != nil {
		if isSoftFailure(err) {
			if w.metrics != nil && isIntegrityFailure(err) {
				w.metrics.IncBundleChecksumMismatch()
			}
			log.Warn(ctx, "resolving configuration, will retry next cycle", log.Err("error", err))
			return nil
		}
		return fmt.Errorf("resolving configuration path: %w", err)
	}
	if path == "" {
		log.Info(ctx, "no configuration path resolved, skipping cycle")
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Info(ctx, "configuration file absent, skipping cycle", slog.String("path", path))
		return nil
	}

	testRes, testExit, err := w.executor.Run(ctx, executor.ModeTest, path, wire.LevelInfo)
	if err != nil {
		return fmt.Errorf("running test: %w", err)
	}
	w.report(ctx, cfg, model.ReportOperationTest, testExit, testRes)
	w.recordCycle(string(model.ReportOperationTest), testExit)

	if !remediate || testRes.AllInDesiredState() {
		return nil
	}

	live := w.cfg.Load().LCM
	if live.ConfigurationPath != pathBefore || live.ConfigurationMode != modeBefore {
		log.Info(ctx, "configuration path or mode changed during test, skipping set")
		return nil
	}

	setRes, setExit, err := w.executor.Run(ctx, executor.ModeSet, path, wire.LevelInfo)
	if err != nil {
		return fmt.Errorf("running set: %w", err)
	}
	w.report(ctx, cfg, model.ReportOperationSet, setExit, setRes)
	w.recordCycle(string(model.ReportOperationSet), setExit)
	return nil
}

// recordCycle records one completed Test or Set invocation, identified
// by op, and the exit code it produced. It is a no-op when the worker
// was built without a metrics sink.
func (w *Worker) recordCycle(op string, exitCode int) {
	if w.metrics == nil {
		return
	}
	w.metrics.RecordLCMCycle(op)
	w.metrics.SetLCMLastExitCode(exitCode)
}

// resolvePath returns the local path of the configuration document to
// invoke, rotating the mTLS certificate first if due and refreshing
// the pulled bundle when the source is Pull.
func (w *Worker) resolvePath(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.LCM.ConfigurationSource == config.SourceLocal {
		return cfg.LCM.ConfigurationPath, nil
	}
	if err := w.rotateCertIfDue(ctx); err != nil {
		log.Warn(ctx, "certificate rotation failed, continuing with current certificate", log.Err("error", err))
	}
	_, path, err := pullclient.Refresh(ctx, w.pull, w.bundles, w.nodeID, cfg.LCM.ConfigurationPath)
	return path, err
}

func (w *Worker) rotateCertIfDue(ctx context.Context) error {
	if !w.certs.ShouldRotate(time.Now()) {
		return nil
	}
	certPEM, keyPEM, notAfter, err := w.certs.GenerateCandidate(w.nodeID)
	if err != nil {
		return fmt.Errorf("generating candidate certificate: %w", err)
	}
	if err := w.pull.RotateCertificate(ctx, w.nodeID, certPEM); err != nil {
		return fmt.Errorf("submitting rotated certificate: %w", err)
	}
	if err := w.certs.Accept(certPEM, keyPEM, notAfter); err != nil {
		return fmt.Errorf("accepting rotated certificate: %w", err)
	}
	log.Info(ctx, "rotated mTLS client certificate")
	return nil
}

func (w *Worker) report(ctx context.Context, cfg *config.Config, op model.ReportOperation, exitCode int, res *wire.Result) {
	if !cfg.LCM.PullServer.ReportCompliance || cfg.LCM.ConfigurationSource != config.SourcePull {
		return
	}
	report := &model.ComplianceReport{
		NodeID:    w.nodeID,
		Operation: op,
		Timestamp: time.Now(),
		ExitCode:  exitCode,
		Results:   executor.ToOutcomes(res),
	}
	if err := w.pull.SubmitReport(ctx, w.nodeID, report); err != nil {
		if isSoftFailure(err) {
			log.Warn(ctx, "submitting compliance report, will retry next cycle", log.Err("error", err))
			return
		}
		log.Error(ctx, "submitting compliance report", log.Err("error", err))
	}
}

// isSoftFailure reports whether err is a TransientIOError or
// IntegrityError, the two kinds the Pull Client treats as retry-next-cycle
// rather than terminal for the current cycle.
func isSoftFailure(err error) bool {
	var ce *cerr.Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == cerr.KindTransientIO || ce.Kind == cerr.KindIntegrity
}

// isIntegrityFailure reports whether err is the IntegrityError the
// Pull Client raises when a downloaded bundle's checksum does not
// match its manifest.
func isIntegrityFailure(err error) bool {
	var ce *cerr.Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == cerr.KindIntegrity
}
