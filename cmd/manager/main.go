/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command manager runs the process-supervision gateway: it loads apps.json
// from its own directory, listens on 0.0.0.0:1134, and serves both the
// binary worker protocol and the HTTP control plane on that single port.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nabbar/msapi-manager/internal/apperrors"
	"github.com/nabbar/msapi-manager/internal/applog"
	"github.com/nabbar/msapi-manager/internal/engine"
	"github.com/nabbar/msapi-manager/internal/httpapi"
	"github.com/nabbar/msapi-manager/internal/manifest"
	"github.com/nabbar/msapi-manager/internal/metrics"
	"github.com/nabbar/msapi-manager/internal/proto"
	"github.com/nabbar/msapi-manager/internal/supervisor"
	"github.com/nabbar/msapi-manager/internal/transport"
)

const listenAddr = "0.0.0.0:1134"

func main() {
	log := applog.New("manager", envOr("MANAGER_LOG_LEVEL", "info"), os.Stderr)

	selfDir, err := selfDirectory()
	if err != nil {
		log.Error("cannot determine installation directory", "error", err)
		os.Exit(1)
	}

	appsPath := filepath.Join(selfDir, "apps.json")
	catalog, err := manifest.Load(appsPath)
	if err != nil {
		log.Error("loading apps.json", "error", err)
		os.Exit(1)
	}

	sup := supervisor.New(envOr("MANAGER_SHELL", "/bin/bash"))
	if err := sup.ShellUsable(); err != nil {
		log.Error("shell interpreter unusable, refusing to start", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	eng := engine.New(log.Named("engine"), sup, met, catalog)

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	router := httpapi.Router(log.Named("http"), eng, filepath.Join(selfDir, "web"), metricsHandler)

	srv := transport.New(log.Named("transport"), transport.DefaultConfig(), router,
		func(c *transport.Connection, m proto.Message) {
			// Frames on the manager's own listening port arrive only from
			// operator tooling speaking the object protocol directly;
			// per-app traffic rides the outbound connections the engine
			// opens in CreateApp, not this inbound listener.
			log.Debug("object frame on control port", "action", m.Action)
		})

	if err := srv.Listen(listenAddr); err != nil {
		log.Error("listen failed", "error", err)
		os.Exit(1)
	}

	applog.Banner("manager", listenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Serve(); err != nil {
			log.Error("server loop exited", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	eng.Pause()
	if err := srv.Stop(); err != nil {
		log.Warn("error during shutdown", "error", err)
	}
}

func selfDirectory() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeManifestUnreadable, "resolving executable path", err)
	}
	real, err := filepath.EvalSymlinks(exe)
	if err != nil {
		real = exe
	}
	return filepath.Dir(real), nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
