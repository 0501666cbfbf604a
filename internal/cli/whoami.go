// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
)

// WhoamiCmd shows the persisted user identity and the configured session.
type WhoamiCmd struct{}

type whoamiInfo struct {
	UserID      string   `json:"userId"`
	DisplayName string   `json:"displayName,omitempty"`
	Role        string   `json:"role,omitempty"`
	HasToken    bool     `json:"hasToken"`
	Server      string   `json:"server"`
	Storage     string   `json:"storage"`
	Degraded    bool     `json:"degraded"`
	Panels      []string `json:"panels"`
}

// Run implements the whoami command.
func (c *WhoamiCmd) Run(env *Env) error {
	a, err := env.App()
	if err != nil {
		return err
	}
	cfg := a.Config()
	session := a.Client.Session()

	info := whoamiInfo{
		UserID:      a.UserID,
		DisplayName: session.DisplayName,
		Role:        session.Role,
		HasToken:    session.Token != "",
		Server:      a.Client.BaseURL(),
		Storage:     cfg.Storage.Backend,
		Degraded:    a.Store.Degraded(),
		Panels:      cfg.PanelKeys(),
	}

	if env.Globals.JSON {
		return json.NewEncoder(env.Out).Encode(info)
	}

	name := info.DisplayName
	if name == "" {
		name = "(anonymous)"
	}
	storage := info.Storage
	if info.Degraded {
		storage += RenderConditional(WarningStyle, " (unavailable, using memory)")
	}
	token := "none"
	if info.HasToken {
		token = "configured"
	}

	fmt.Fprintln(env.Out, RenderConditional(TitleStyle, "entchat identity"))
	fmt.Fprintln(env.Out, RenderLabel("User ID")+info.UserID)
	fmt.Fprintln(env.Out, RenderLabel("Name")+name)
	if info.Role != "" {
		fmt.Fprintln(env.Out, RenderLabel("Role")+info.Role)
	}
	fmt.Fprintln(env.Out, RenderLabel("Token")+token)
	fmt.Fprintln(env.Out, RenderLabel("Server")+info.Server)
	fmt.Fprintln(env.Out, RenderLabel("Storage")+storage)
	fmt.Fprintf(env.Out, "%s%v\n", RenderLabel("Panels"), info.Panels)
	return nil
}
