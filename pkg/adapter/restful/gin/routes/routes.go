// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package routes contains all operator-facing resource packages and
// facilitates instantiation and registration of all repo, use case, and
// resource packages based on the user provided configuration settings.
// The node-facing mTLS surface (registration, bundle download, report
// submission) is registered on a separate mux by cmd/pullserver and is
// not part of this package.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/authnrp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/authzrp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/compositerp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/configrp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/noderp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/paramrp"
	"github.com/opendsc/opendsc/pkg/adapter/db/postgres/scoperp"
	"github.com/opendsc/opendsc/pkg/adapter/metrics"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/authnmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/compositesrs"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/configurationsrs"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/metricsmw"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/nodesrs"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/parametersrs"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/registrationrs"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/retentionrs"
	"github.com/opendsc/opendsc/pkg/adapter/restful/gin/scopesrs"
	"github.com/opendsc/opendsc/pkg/core/repo"
	"github.com/opendsc/opendsc/pkg/core/usecase/authnsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/authzsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/compositesvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/configsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/nodesvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/paramadminsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/registrationsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/retentionsvc"
	"github.com/opendsc/opendsc/pkg/core/usecase/scopesvc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UseCases bundles every use case instantiated by Register, so the
// caller (cmd/pullserver and the node-facing mux builder) may reuse them
// outside of the operator gin engine, for example to build the Bundle
// Builder use case which also needs repo.Configurations/Composites/Nodes.
type UseCases struct {
	Authn          *authnsvc.UseCase
	Authz          *authzsvc.UseCase
	Scopes         *scopesvc.UseCase
	Configs        *configsvc.UseCase
	Composites     *compositesvc.UseCase
	Nodes          *nodesvc.UseCase
	ParamAdmin     *paramadminsvc.UseCase
	Retention      *retentionsvc.UseCase
	Registration   *registrationsvc.UseCase
	ConfigsRepo    repo.Configurations
	CompositesRepo repo.Composites
	NodesRepo      repo.Nodes
	ParamsRepo     repo.Parameters
	ScopesRepo     repo.Scopes
	Metrics        *metrics.Metrics
}

// Register instantiates the relevant repositories and use cases and
// mounts the operator-facing REST API onto the e gin-gonic engine, under
// the /api/opendsc/v1 route group. Every route in the group requires a
// session cookie or bearer personal access token, resolved by
// authnmw.Authenticated; each resource package is additionally handed
// ucs.Authz and gates its own routes with the global permission or
// resource ACL the action needs, since that mapping belongs with the
// route, not with this shared middleware. It returns the instantiated
// use cases so the caller may reuse them for other surfaces, such as
// the node-facing mTLS mux.
func Register(e *gin.Engine, p repo.Pool) *UseCases {
	scopesRepo := scoperp.New()
	configsRepo := configrp.New()
	compositesRepo := compositerp.New()
	nodesRepo := noderp.New()
	paramsRepo := paramrp.New()
	authzRepo := authzrp.New()
	authnRepo := authnrp.New()

	ucs := &UseCases{
		Authn:          authnsvc.New(p, authnRepo, authzRepo),
		Authz:          authzsvc.New(p, authzRepo),
		Scopes:         scopesvc.New(p, scopesRepo),
		Configs:        configsvc.New(p, configsRepo, paramsRepo),
		Composites:     compositesvc.New(p, compositesRepo, configsRepo),
		Nodes:          nodesvc.New(p, nodesRepo, scopesRepo, configsRepo, compositesRepo),
		ParamAdmin:     paramadminsvc.New(p, paramsRepo, scopesRepo),
		Retention:      retentionsvc.New(p, configsRepo, compositesRepo, paramsRepo),
		Registration:   registrationsvc.New(p, nodesRepo),
		ConfigsRepo:    configsRepo,
		CompositesRepo: compositesRepo,
		NodesRepo:      nodesRepo,
		ParamsRepo:     paramsRepo,
		ScopesRepo:     scopesRepo,
		Metrics:        metrics.New(),
	}

	e.Use(metricsmw.Middleware(ucs.Metrics))
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r := e.Group("/api/opendsc/v1")
	r.Use(authnmw.Authenticated(ucs.Authn))
	configurationsrs.Register(r, ucs.Configs, ucs.Authz)
	compositesrs.Register(r, ucs.Composites, ucs.Configs, ucs.Authz)
	scopesrs.Register(r, ucs.Scopes, ucs.Authz)
	parametersrs.Register(r, ucs.ParamAdmin, ucs.Scopes, ucs.Authz)
	retentionrs.Register(r, ucs.Retention, ucs.Authz)
	nodesrs.Register(r, ucs.Nodes, ucs.Authz)
	registrationrs.Register(r, ucs.Registration, ucs.Authz)
	return ucs
}
