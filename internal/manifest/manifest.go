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

// Package manifest loads and reloads the installed-apps catalog (apps.json):
// which binaries exist and whether each exposes a browser view. It holds no
// parameter or table metadata; that arrives from a running worker.
package manifest

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/nabbar/msapi-manager/internal/apperrors"
)

// App is one entry of the installed-apps catalog: what to execute, whether
// it has a browser view, and the view's port parameter name within its own
// parameter set.
type App struct {
	Type              string `mapstructure:"type"`
	Bin               string `mapstructure:"bin"`
	HasView           bool   `mapstructure:"hasView"`
	ViewPortParameter string `mapstructure:"viewPortParameter"`
}

// Catalog maps an app type name to its App entry.
type Catalog map[string]App

// Load reads path (apps.json) via viper. An empty or unreadable catalog is
// reported as an error so the caller can pause and stop the server, mirroring
// HandleRunRequest's "manifest invalid/empty => HandlePauseRequest + Server::Stop".
func Load(path string) (Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeManifestUnreadable, "reading "+path, err)
	}

	var raw map[string]App
	if err := v.Unmarshal(&raw); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeManifestUnreadable, "decoding "+path, err)
	}
	if len(raw) == 0 {
		return nil, apperrors.New(apperrors.CodeManifestEmpty, "apps.json declares no apps")
	}

	cat := make(Catalog, len(raw))
	for name, app := range raw {
		if app.Bin == "" {
			return nil, apperrors.New(apperrors.CodeManifestEntryBad, fmt.Sprintf("app %q has no bin", name))
		}
		cat[name] = app
	}
	return cat, nil
}

// Diff describes what changed between two loads of the same app name: brand
// new, bin path changed, or view port changed. Zero value means no change
// worth logging.
type Diff struct {
	IsNew          bool
	BinChanged     bool
	ViewPortChanged bool
}

// Reload compares a freshly loaded catalog against the previous one,
// returning a Diff per app name so the caller can log exactly what moved.
func Reload(previous, next Catalog) map[string]Diff {
	diffs := make(map[string]Diff)
	for name, app := range next {
		old, existed := previous[name]
		if !existed {
			diffs[name] = Diff{IsNew: true}
			continue
		}
		d := Diff{}
		if old.Bin != app.Bin {
			d.BinChanged = true
		}
		if old.ViewPortParameter != app.ViewPortParameter {
			d.ViewPortChanged = true
		}
		if d.BinChanged || d.ViewPortChanged {
			diffs[name] = d
		}
	}
	return diffs
}
