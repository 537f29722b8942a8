/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

// Package walker enumerates the files below a scan root without following
// symbolic links, reparse points or directory cycles.
package walker

import (
	"iter"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Walker yields the regular files below a root.
type Walker struct {
	fs   afero.Fs
	root string
	log  *zap.SugaredLogger
}

// New creates a walker over root. A nil logger discards log output.
func New(fs afero.Fs, root string, logger *zap.SugaredLogger) *Walker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Walker{fs: fs, root: root, log: logger}
}

// Paths returns a lazy sequence of file paths. Every call starts a new
// traversal. A root that is not a directory is yielded as is, this allows
// scanning raw devices.
func (w *Walker) Paths() iter.Seq[string] {
	return func(yield func(string) bool) {
		info, err := w.fs.Stat(w.root)
		if err != nil {
			w.log.Debugw("skipping root", "path", w.root, "error", err)
			return
		}
		if !info.IsDir() {
			yield(w.root)
			return
		}
		visited := map[identity]bool{}
		w.walk(w.root, info, visited, yield)
	}
}

// walk returns false once the consumer stopped the iteration.
func (w *Walker) walk(dir string, info os.FileInfo, visited map[identity]bool, yield func(string) bool) bool {
	id, ok := traversable(dir, info)
	if !ok {
		w.log.Debugw("not traversing", "path", dir)
		return true
	}
	if visited[id] {
		w.log.Debugw("directory already visited", "path", dir)
		return true
	}
	visited[id] = true

	entries, err := readDir(w.fs, dir)
	if err != nil {
		w.log.Debugw("could not list directory", "path", dir, "error", err)
		return true
	}

	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		mode := entry.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			w.log.Debugw("skipping symlink", "path", p)
		case entry.IsDir():
			if !w.walk(p, entry, visited, yield) {
				return false
			}
		case mode.IsRegular():
			if !yield(p) {
				return false
			}
		}
	}
	return true
}

// readDir lists dir sorted by name. Entries carry lstat information.
func readDir(fs afero.Fs, dir string) ([]os.FileInfo, error) {
	f, err := fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint:errcheck

	entries, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}
