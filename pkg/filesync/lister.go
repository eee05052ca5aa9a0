// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package filesync

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kr/fs"

	"github.com/vmware/remote-deploy/pkg/remote"
)

// FileSet is a set of slash separated paths relative to a sync root.
type FileSet map[string]struct{}

// Sorted returns the members of s in lexical order.
func (s FileSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Lister enumerates the regular files below a remote directory.
type Lister struct {
	Session remote.Session
}

func listCommand(dir string) string {
	return fmt.Sprintf("find %s -type f 2>/dev/null || true", remote.Quote(dir))
}

// List runs a single find on the remote host. A missing directory yields an
// empty set; an error is returned only when the command itself could not run.
func (l *Lister) List(dir string) (FileSet, error) {
	dir = trimSlash(dir)
	res := l.Session.Exec(listCommand(dir))
	if !res.Succeeded {
		return FileSet{}, fmt.Errorf("failed to list %s: %s", dir, res.Output)
	}
	return ParseListing(dir, res.Output), nil
}

// ParseListing turns find output into paths relative to dir. Lines outside
// dir are ignored.
func ParseListing(dir, output string) FileSet {
	prefix := trimSlash(dir)
	if prefix != "/" {
		prefix += "/"
	}

	files := FileSet{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || !strings.HasPrefix(line, prefix) {
			continue
		}
		rel := strings.Trim(strings.TrimPrefix(line, prefix), "/")
		if rel != "" {
			files[rel] = struct{}{}
		}
	}
	return files
}

// LocalFiles walks root and returns every regular file relative to it.
// Symlinks to regular files count as files.
func LocalFiles(root string) (FileSet, error) {
	files := FileSet{}
	err := walkFiles(root, func(_, rel string) error {
		files[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// walkFiles calls fn for every regular file under root, in lexical order,
// with its local path and its slash separated path relative to root.
// fs.Walk reports symlinks via Lstat; links are followed to their target and
// included when that target is a regular file. Symlinked directories are not
// descended into.
func walkFiles(root string, fn func(localPath, rel string) error) error {
	walker := fs.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return err
		}
		if !isRegularFile(walker.Path(), walker.Stat()) {
			continue
		}
		rel, err := filepath.Rel(root, walker.Path())
		if err != nil {
			return err
		}
		if err := fn(walker.Path(), filepath.ToSlash(rel)); err != nil {
			return err
		}
	}
	return nil
}

func isRegularFile(localPath string, info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.Mode().IsRegular()
	}
	target, err := os.Stat(localPath)
	if err != nil {
		log.Printf("warning: skipping broken symlink %s: %v", localPath, err)
		return false
	}
	return target.Mode().IsRegular()
}

// Diff is the outcome of comparing a local tree with its remote mirror.
type Diff struct {
	// ToUpload holds every local file; there is no content comparison.
	ToUpload []string
	// ToDelete holds remote files with no local counterpart.
	ToDelete []string
}

// ComputeDiff compares two relative file sets.
func ComputeDiff(local, remoteFiles FileSet) Diff {
	diff := Diff{ToUpload: local.Sorted()}
	for _, p := range remoteFiles.Sorted() {
		if _, ok := local[p]; !ok {
			diff.ToDelete = append(diff.ToDelete, p)
		}
	}
	return diff
}

func trimSlash(p string) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" && strings.HasPrefix(p, "/") {
		return "/"
	}
	return trimmed
}

func localPathExists(p string) (os.FileInfo, error) {
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLocalPathMissing, p)
	}
	return info, err
}
