// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// VersionCmd prints build information.
type VersionCmd struct{}

// Run implements the version command.
func (c *VersionCmd) Run(env *Env) error {
	if env.Globals.JSON {
		return json.NewEncoder(env.Out).Encode(map[string]string{
			"version":   Version,
			"commit":    GitCommit,
			"buildDate": BuildDate,
			"go":        runtime.Version(),
		})
	}
	fmt.Fprintf(env.Out, "entchat %s (commit %s, built %s, %s %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
