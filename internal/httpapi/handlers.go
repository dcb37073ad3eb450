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

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nabbar/msapi-manager/internal/apperrors"
	"github.com/nabbar/msapi-manager/internal/applog"
	"github.com/nabbar/msapi-manager/internal/engine"
	"github.com/nabbar/msapi-manager/internal/proto"
)

type handlers struct {
	eng *engine.Engine
	log applog.Logger
}

func (h *handlers) getInstalledApps(c *gin.Context) {
	c.JSON(http.StatusOK, h.eng.InstalledApps())
}

type createdAppView struct {
	Type      string `json:"type"`
	Port      int    `json:"port"`
	Pid       int    `json:"pid"`
	CreatedAt string `json:"created"`
}

func (h *handlers) getCreatedApps(c *gin.Context) {
	apps := h.eng.CreatedApps()
	out := make([]createdAppView, 0, len(apps))
	for _, a := range apps {
		out = append(out, createdAppView{
			Type:      a.Type,
			Port:      a.Port,
			Pid:       a.Pid,
			CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) createApp(c *gin.Context) {
	var body struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": false, "message": err.Error()})
		return
	}
	app, err := h.eng.CreateApp(body.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true, "port": app.Port})
}

func (h *handlers) getMetadata(c *gin.Context) {
	appType := c.Param("type")
	md, err := h.eng.GetMetadata(appType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true, "metadata": json.RawMessage(md)})
}

func (h *handlers) getParameters(c *gin.Context) {
	port, err := portParam(c)
	if err != nil {
		return
	}
	ps, err := h.eng.GetParameters(port)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderParameters(ps))
}

// renderParameters turns a decoded ParameterSet into a plain JSON-friendly
// map, the mirror image of proto.CoerceJSONParameter used on modify.
func renderParameters(ps proto.ParameterSet) map[string]any {
	out := make(map[string]any, len(ps))
	for id, v := range ps {
		key := strconv.FormatUint(id, 10)
		out[key] = v.V
	}
	return out
}

func (h *handlers) modify(c *gin.Context) {
	port, err := portParam(c)
	if err != nil {
		return
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": false, "message": err.Error()})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": false, "message": "no parameters to update"})
		return
	}

	ps := make(proto.ParameterSet, len(raw))
	for idStr, rawVal := range raw {
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"status": false, "message": "invalid parameter id " + idStr})
			return
		}
		var typed struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(rawVal, &typed); err != nil {
			c.JSON(http.StatusOK, gin.H{"status": false, "message": err.Error()})
			return
		}
		tag, ok := proto.TypeTagFromString(typed.Type)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"status": false, "message": "unknown field type " + typed.Type})
			return
		}
		v, err := proto.CoerceJSONParameter(tag, typed.Value)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"status": false, "message": err.Error()})
			return
		}
		ps[id] = v
	}

	if err := h.eng.Modify(port, ps); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true})
}

func (h *handlers) pause(c *gin.Context) {
	port, err := portParam(c)
	if err != nil {
		return
	}
	result, err := h.eng.PauseApp(port)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true, "result": result})
}

func (h *handlers) run(c *gin.Context) {
	port, err := portParam(c)
	if err != nil {
		return
	}
	result, err := h.eng.RunApp(port)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true, "result": result})
}

func (h *handlers) deleteApp(c *gin.Context) {
	port, err := portParam(c)
	if err != nil {
		return
	}
	if err := h.eng.DeleteApp(port); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true})
}

func portParam(c *gin.Context) (int, error) {
	port, err := strconv.Atoi(c.Param("port"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": false, "message": "invalid port"})
		return 0, err
	}
	return port, nil
}

// writeError renders any engine error as {status:false,message:...}. Every
// response - success or failure - uses HTTP 200; the status field alone is
// authoritative, so a caller never needs to branch on the HTTP status code.
func writeError(c *gin.Context, err error) {
	var coded *apperrors.Coded
	if errors.As(err, &coded) {
		c.JSON(http.StatusOK, gin.H{"status": false, "message": coded.Msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": false, "message": err.Error()})
}
