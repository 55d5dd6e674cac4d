/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrBadName is returned for file names that would escape the store.
var ErrBadName = errors.New("invalid file name")

// allowedExt lists the upload extensions the server accepts.
var allowedExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// AllowedExt reports whether an upload with this file name is accepted.
func AllowedExt(filename string) bool {
	return allowedExt[strings.ToLower(filepath.Ext(filename))]
}

// FileStore keeps uploaded files flat under one directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{basePath: dir}, nil
}

func (s *FileStore) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", ErrBadName
	}
	return filepath.Join(s.basePath, name), nil
}

// Save writes data to name through a temp file and rename.
func (s *FileStore) Save(name string, data io.Reader) (err error) {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), full)
}

// Path returns the on-disk path of an existing file.
func (s *FileStore) Path(name string) (string, error) {
	full, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", os.ErrNotExist
	}
	return full, nil
}

// Delete removes name.
func (s *FileStore) Delete(name string) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(full)
}
