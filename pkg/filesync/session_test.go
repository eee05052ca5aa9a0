// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package filesync

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware/remote-deploy/pkg/remote"
)

// shellSession runs commands with the local shell and treats the local
// filesystem as the remote host. Upload does not create parent directories,
// like sftp.
type shellSession struct {
	commands []string
	uploads  []string

	failUpload  string
	failCommand string
}

func (s *shellSession) Exec(cmd string) remote.Result {
	s.commands = append(s.commands, cmd)
	if s.failCommand != "" && strings.HasPrefix(cmd, s.failCommand) {
		return remote.Result{Output: "permission denied"}
	}
	out, err := exec.Command("sh", "-c", cmd).CombinedOutput()
	return remote.Result{Succeeded: err == nil, Output: string(out)}
}

func (s *shellSession) Upload(localPath, remotePath string) error {
	s.uploads = append(s.uploads, remotePath)
	if s.failUpload != "" && strings.HasSuffix(remotePath, s.failUpload) {
		return errors.New("connection lost")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return os.WriteFile(remotePath, data, 0o644)
}

func (s *shellSession) Close() error {
	return nil
}

func (s *shellSession) countPrefix(prefix string) int {
	n := 0
	for _, cmd := range s.commands {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

// progressSession reports each upload in two halves.
type progressSession struct {
	shellSession
}

func (s *progressSession) UploadWithProgress(localPath, remotePath string, progress remote.ProgressFunc) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}
	progress(info.Size()/2, info.Size())
	if err := s.Upload(localPath, remotePath); err != nil {
		return err
	}
	progress(info.Size(), info.Size())
	return nil
}

type progressEvent struct {
	path           string
	written, total int64
}

type recordingObserver struct {
	progress []progressEvent
	uploaded []string
	deleted  []string
	failed   []string
}

func (o *recordingObserver) FileProgress(_, remotePath string, written, total int64) {
	o.progress = append(o.progress, progressEvent{path: remotePath, written: written, total: total})
}

func (o *recordingObserver) FileUploaded(_, remotePath string) {
	o.uploaded = append(o.uploaded, remotePath)
}

func (o *recordingObserver) FileDeleted(remotePath string) {
	o.deleted = append(o.deleted, remotePath)
}

func (o *recordingObserver) DeleteFailed(err *DeleteError) {
	o.failed = append(o.failed, err.Path)
}

// writeTree creates files (relative slash paths) under root with their own
// path as content.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
	}
}

func treeFiles(t *testing.T, root string) []string {
	t.Helper()
	files, err := LocalFiles(root)
	require.NoError(t, err)
	return files.Sorted()
}
