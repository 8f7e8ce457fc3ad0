// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	_ "github.com/fnrg-nfv/click/elements/aqm"
	_ "github.com/fnrg-nfv/click/elements/ip"
	_ "github.com/fnrg-nfv/click/elements/standard"
	_ "github.com/fnrg-nfv/click/elements/stats"
	"github.com/fnrg-nfv/click/pkg/log"
	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/app"
	"github.com/fnrg-nfv/click/private/app/launcher"
	"github.com/fnrg-nfv/click/private/env"
	"github.com/fnrg-nfv/click/private/service"
	"github.com/fnrg-nfv/click/router"
	"github.com/fnrg-nfv/click/router/api"
	"github.com/fnrg-nfv/click/router/config"
)

var globalCfg config.Config

func main() {
	application := launcher.Application{
		TOMLConfig: &globalCfg,
		ShortName:  "Click Modular Router",
		Main:       realMain,
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	g, errCtx := errgroup.WithContext(ctx)

	var cleanup app.Cleanup
	g.Go(func() error {
		defer log.HandlePanic()
		<-errCtx.Done()
		return cleanup.Do()
	})

	tracer, trCloser, err := globalCfg.Tracing.NewTracer(globalCfg.General.ID)
	if err != nil {
		return serrors.Wrap("initializing tracer", err)
	}
	opentracing.SetGlobalTracer(tracer)
	cleanup.Add(trCloser.Close)

	rt := router.New(router.NewMetrics(prometheus.DefaultRegisterer))
	rt.DeterministicRandom = globalCfg.Features.DeterministicRandom
	if err := applyPipeline(rt); err != nil {
		return err
	}
	cleanup.Add(func() error { rt.Stop(); return nil })

	statusPages := service.StatusPages{
		"info":      service.NewInfoStatusPage(),
		"config":    service.NewConfigStatusPage(globalCfg),
		"log/level": service.NewLogLevelStatusPage(),
		"pipeline":  pipelineHandler(rt),
	}
	if err := statusPages.Register(http.DefaultServeMux, globalCfg.General.ID); err != nil {
		return err
	}

	// Initialize and start service management API.
	if globalCfg.API.Addr != "" {
		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
		}))
		server := &api.Server{
			Config:   service.NewConfigStatusPage(globalCfg).Handler,
			Info:     service.NewInfoStatusPage().Handler,
			LogLevel: service.NewLogLevelStatusPage().Handler,
			Router:   rt,
		}
		log.Info("Exposing API", "addr", globalCfg.API.Addr)
		h := api.HandlerFromMux(server, r)
		mgmtServer := &http.Server{
			Addr:    globalCfg.API.Addr,
			Handler: h,
		}
		cleanup.Add(mgmtServer.Close)
		g.Go(func() error {
			defer log.HandlePanic()
			err := mgmtServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return serrors.Wrap("serving service management API", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer log.HandlePanic()
		return globalCfg.Metrics.ServePrometheus(errCtx)
	})
	// A failed reload keeps the running pipeline in place.
	g.Go(func() error {
		defer log.HandlePanic()
		sighup := env.SIGHUP()
		for {
			select {
			case <-sighup:
				log.Info("Reloading pipeline on SIGHUP")
				if err := applyPipeline(rt); err != nil {
					log.Error("Reloading pipeline", "err", err)
				}
			case <-errCtx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

func applyPipeline(rt *router.Router) error {
	file := globalCfg.PipelinePath()
	raw, err := os.ReadFile(file)
	if err != nil {
		return serrors.Wrap("reading pipeline definition", err, "file", file)
	}
	if err := rt.ApplyConfig(string(raw)); err != nil {
		return serrors.Wrap("applying pipeline definition", err, "file", file)
	}
	log.Info("Pipeline applied", "file", file)
	return nil
}

func pipelineHandler(rt *router.Router) service.StatusPage {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := w.Write([]byte(rt.Config())); err != nil {
			http.Error(w, "Unable to write pipeline", http.StatusInternalServerError)
		}
	}
	return service.StatusPage{
		Info:    "pipeline definition",
		Handler: handler,
	}
}
