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

// Package httpapi is the manager's HTTP control plane: a gin router exposing
// the installed/created app catalog and the lifecycle RPCs (metadata,
// parameters, pause, run, delete, modify), plus static file serving for the
// browser UI and a Prometheus /metrics endpoint.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nabbar/msapi-manager/internal/applog"
	"github.com/nabbar/msapi-manager/internal/engine"
	"github.com/nabbar/msapi-manager/internal/identity"
)

// Router builds the gin engine serving /api, /metrics, and static web assets
// rooted at webDir. metricsHandler is typically promhttp.HandlerFor bound to
// the manager's own prometheus.Registry; pass nil to omit /metrics.
func Router(log applog.Logger, eng *engine.Engine, webDir string, metricsHandler http.Handler) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	h := &handlers{eng: eng, log: log}

	api := r.Group("/api")
	{
		api.GET("/apps/installed", h.getInstalledApps)
		api.GET("/apps/created", h.getCreatedApps)
		api.POST("/apps", h.createApp)
		api.GET("/apps/types/:type/metadata", h.getMetadata)
		api.GET("/apps/:port/parameters", h.getParameters)
		api.PATCH("/apps/:port", h.modify)
		api.POST("/apps/:port/pause", h.pause)
		api.POST("/apps/:port/run", h.run)
		api.DELETE("/apps/:port", h.deleteApp)
	}

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	if webDir != "" {
		r.Static("/ui", webDir)
		r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/ui/") })
	}

	return r
}

// requestLogger tags every request with a process-lifetime correlation token
// so a single request's log lines can be grepped out of an interleaved,
// goroutine-per-connection log stream.
func requestLogger(log applog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		corr := identity.Token()
		c.Writer.Header().Set("X-Correlation-Id", corr)
		c.Next()
		if log == nil {
			return
		}
		log.Debug("http request", "corr", corr, "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status())
	}
}
