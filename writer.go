// writer.go: Persisting argument mappings
//
// DumpArgs writes a whole mapping at once. ArgsWriter edits an existing
// argument file key by key and writes it back only when something changed.
// Both write atomically through a temporary file in the target directory.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
)

// DumpArgs writes m to path with the default Binder.
func DumpArgs(m Mapping, path string) error {
	return Default().DumpArgs(m, path)
}

// DumpArgs writes m to path in the format implied by its extension (YAML
// when unknown), creating parent directories as needed.
func (b *Binder) DumpArgs(m Mapping, path string) error {
	format := DetectFormat(path)
	if format == FormatUnknown {
		format = FormatYAML
	}
	data, err := MarshalConfig(m, format)
	if err != nil {
		return err
	}
	if err := atomicWrite(path, data); err != nil {
		return err
	}
	b.logger.Debug("arguments saved", "path", path, "keys", len(m))
	b.audit.LogFile(EventArgsSaved, path, len(m))
	return nil
}

// SaveUsed writes the keys consumed so far by bound calls to path.
func (b *Binder) SaveUsed(path string) error {
	return b.DumpArgs(b.UsedArgs(), path)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrap(err, ErrCodeWriteError,
			fmt.Sprintf("cannot create directory %s", dir))
	}

	tempPath := filepath.Join(dir, "."+filepath.Base(path)+".tmp."+fmt.Sprintf("%d", time.Now().UnixNano()))
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return errors.Wrap(err, ErrCodeWriteError, "failed to write temp file")
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, ErrCodeWriteError,
			fmt.Sprintf("failed to replace %s", path))
	}
	return nil
}

// ArgsWriter edits the flat keys of one argument file. Directives such as
// $include and $vars are kept as they are: the writer works on the raw
// document, not on the expanded result of LoadArgs.
//
// Thread safety: safe for concurrent use.
type ArgsWriter struct {
	path   string
	format ConfigFormat
	binder *Binder

	mu           sync.RWMutex
	doc          Mapping
	originalHash uint64
}

// NewArgsWriter opens path for editing. A missing file starts empty.
func (b *Binder) NewArgsWriter(path string) (*ArgsWriter, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		format = FormatYAML
	}
	w := &ArgsWriter{path: path, format: format, binder: b, doc: Mapping{}}

	data, err := os.ReadFile(path) // #nosec G304 -- editing user-named argument files is the purpose
	switch {
	case err == nil:
		doc, err := ParseConfig(data, format)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			w.doc = doc
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrap(err, ErrCodeParseError, fmt.Sprintf("cannot read %s", path))
	}

	w.originalHash = hashMapping(w.doc)
	return w, nil
}

// Set stores value under key after validating the key.
func (w *ArgsWriter) Set(key string, value interface{}) error {
	if !strings.HasPrefix(key, "$") {
		if err := ValidateKey(key); err != nil {
			return err
		}
	}
	w.mu.Lock()
	w.doc[key] = value
	w.mu.Unlock()
	return nil
}

// Get returns the raw value stored under key.
func (w *ArgsWriter) Get(key string) (interface{}, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.doc[key]
	return v, ok
}

// Delete removes key and reports whether it existed.
func (w *ArgsWriter) Delete(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.doc[key]; !ok {
		return false
	}
	delete(w.doc, key)
	return true
}

// Keys returns the sorted keys starting with prefix.
func (w *ArgsWriter) Keys(prefix string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	keys := make([]string, 0, len(w.doc))
	for k := range w.doc {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// HasChanges reports whether the document differs from what was read.
func (w *ArgsWriter) HasChanges() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return hashMapping(w.doc) != w.originalHash
}

// Write saves the document back to its file if it changed.
func (w *ArgsWriter) Write() error {
	if !w.HasChanges() {
		return nil
	}
	return w.WriteAs(w.path)
}

// WriteAs saves the document to path, in the format implied by path.
func (w *ArgsWriter) WriteAs(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.binder.DumpArgs(w.doc.Clone(), path); err != nil {
		return err
	}
	if path == w.path {
		w.originalHash = hashMapping(w.doc)
	}
	return nil
}

func hashMapping(m Mapping) uint64 {
	h := fnv.New64a()
	for _, k := range sortedKeys(m) {
		_, _ = fmt.Fprintf(h, "%s=%s\x00", k, FormatValue(m[k]))
		_, _ = fmt.Fprintf(h, "%T\x00", m[k])
	}
	return h.Sum64()
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m Mapping) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
