// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/entchat/internal/util"
)

// File keeps every key in one JSON object and rewrites it atomically on
// each change.
type File struct {
	path string
	mem  *Memory
}

// OpenFile loads path if it exists. A missing file starts empty; an
// unreadable or corrupt file is an error.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	f := &File{path: path, mem: NewMemory()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.mem.data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if f.mem.data == nil {
		f.mem.data = make(map[string]string)
	}
	return f, nil
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

// Get implements KV.
func (f *File) Get(key string) (string, bool, error) {
	return f.mem.Get(key)
}

// Set implements KV.
func (f *File) Set(key, value string) error {
	if v, ok, _ := f.mem.Get(key); ok && v == value {
		return nil
	}
	f.mem.Set(key, value)
	return f.save()
}

// Delete implements KV.
func (f *File) Delete(key string) error {
	if _, ok, _ := f.mem.Get(key); !ok {
		return nil
	}
	f.mem.Delete(key)
	return f.save()
}

// Keys implements KV.
func (f *File) Keys(prefix string) ([]string, error) {
	return f.mem.Keys(prefix)
}

// Close implements KV.
func (f *File) Close() error {
	return nil
}

func (f *File) save() error {
	data, err := json.MarshalIndent(f.mem.snapshot(), "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(f.path, data, 0600)
}
