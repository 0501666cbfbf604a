// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strings"

	"github.com/jeranaias/entchat/internal/model"
)

// UserID returns the persisted user identity, generating and storing a new
// one when none exists. A store error still yields a usable id.
func UserID(kv KV) (string, error) {
	if v, ok, err := kv.Get(KeyUserID); err == nil && ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	id := model.NewUserID()
	return id, kv.Set(KeyUserID, id)
}
