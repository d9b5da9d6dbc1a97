// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stripclust

import (
	"runtime/debug"
)

const modulePath = "github.com/LynnColeArt/stripclust"

// Version returns the module version of stripclust and its checksum. A
// development build reports the VCS revision instead, suffixed with
// "+dirty" when the tree had local changes.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionFrom(b)
}

func versionFrom(b *debug.BuildInfo) (string, string) {
	m := &b.Main
	if m.Path != modulePath {
		m = nil
		for _, d := range b.Deps {
			if d.Path == modulePath {
				m = d
				break
			}
		}
		if m == nil {
			return "", ""
		}
		if m.Replace != nil {
			m = m.Replace
		}
		return m.Version, m.Sum
	}
	if m.Version != "" && m.Version != "(devel)" {
		return m.Version, m.Sum
	}

	var rev string
	var dirty bool
	for _, s := range b.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return m.Version, m.Sum
	}
	if dirty {
		rev += "+dirty"
	}
	return rev, ""
}
