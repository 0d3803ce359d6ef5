// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package command provides the root and sub-commands for the Pull
// Server. Commands are organized using the cobra library. The root
// command starts both the operator-facing gin engine and the
// node-facing mTLS mux, while the "db" sub-command runs the relational
// schema auto-migration.
//
//	./pullserver [-c /path/of/config.yaml]
//	./pullserver db migrate [-c /path/of/config.yaml]
package command

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/opendsc/opendsc/pkg/adapter/config"
	"github.com/opendsc/opendsc/pkg/adapter/restful/mux/nodemux"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/routes"
	"github.com/opendsc/opendsc/pkg/core/usecase/bundlesvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/paramsvc"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "pullserver",
	Short: "OpenDSC Pull Server",
	Long: `The OpenDSC Pull Server hosts named, versioned Configurations
and CompositeConfigurations, resolves per-node parameter overrides, and
serves deterministic configuration bundles to registered nodes over a
certificate-authenticated channel, independent from the operator-facing
REST API used to author and publish content.`,
	RunE: serve,
}

func serve(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("reading %q: %w", cfgPath, err)
	}
	c, err := config.Load(data)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	p, err := c.Database.ConnectionPool(ctx)
	if err != nil {
		return fmt.Errorf("creating DB pool: %w", err)
	}
	defer p.Close()

	e := c.Gin.NewEngine()
	ucs := routes.Register(e, p)

	paramSvc := paramsvc.New(p, ucs.ScopesRepo, ucs.NodesRepo, ucs.ParamsRepo)
	bundles := bundlesvc.New(p, ucs.ConfigsRepo, ucs.CompositesRepo, ucs.NodesRepo, paramSvc)

	nr := mux.NewRouter()
	nodemux.Register(nr, ucs.Registration, bundles)

	errc := make(chan error, 2)
	go func() {
		errc <- e.Run(c.Gin.Addr)
	}()
	go func() {
		errc <- serveNodeMux(c, nr)
	}()
	return <-errc
}

// serveNodeMux starts the node-facing mTLS listener. Client certificates
// are requested but verified against Node rows (not against the CA
// pool alone) by the nodemux authentication middleware, so
// tls.RequestClientCert suffices here even though /nodes/register must
// remain reachable before a node's certificate is known to the server.
func serveNodeMux(c *config.Config, nr *mux.Router) error {
	pool := x509.NewCertPool()
	if c.Node.CAFile != "" {
		pem, err := os.ReadFile(c.Node.CAFile)
		if err != nil {
			return fmt.Errorf("reading node CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificates parsed from %q", c.Node.CAFile)
		}
	}
	srv := &http.Server{
		Addr:    c.Node.Addr,
		Handler: nr,
		TLSConfig: &tls.Config{
			ClientAuth: tls.RequestClientCert,
			ClientCAs:  pool,
		},
	}
	return srv.ListenAndServeTLS(c.Node.CrtFile, c.Node.KeyFile)
}

// Execute runs the rootCmd which in turn parses CLI arguments and flags
// and runs the most specific cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	rootCmd.PersistentFlags().StringVarP(
		&cfgPath, "config", "c", "", "config file path",
	)
}

func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	var found bool
	if cfgPath, found = os.LookupEnv("CONFIG_FILE"); !found {
		cfgPath = "configs/sample-config.yaml"
	}
}
