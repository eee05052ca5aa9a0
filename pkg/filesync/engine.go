// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package filesync

import (
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/remote"
)

// Observer is notified as files are transferred or removed. FileProgress is
// only called when the session supports progress reporting.
type Observer interface {
	FileProgress(localPath, remotePath string, written, total int64)
	FileUploaded(localPath, remotePath string)
	FileDeleted(remotePath string)
	DeleteFailed(err *DeleteError)
}

type nopObserver struct{}

func (nopObserver) FileProgress(string, string, int64, int64) {}
func (nopObserver) FileUploaded(string, string)               {}
func (nopObserver) FileDeleted(string)                        {}
func (nopObserver) DeleteFailed(*DeleteError)                 {}

// Report summarizes one UploadAll call.
type Report struct {
	Uploaded       []string
	Deleted        []string
	DeleteFailures []*DeleteError
}

// Engine applies upload rules over a single remote session.
type Engine struct {
	session  remote.Session
	lister   *Lister
	observer Observer

	// remote directories already created during this run
	ensured map[string]bool
}

// NewEngine returns an Engine bound to session. observer may be nil.
func NewEngine(session remote.Session, observer Observer) *Engine {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{
		session:  session,
		lister:   &Lister{Session: session},
		observer: observer,
		ensured:  map[string]bool{},
	}
}

// UploadAll processes rules in order and stops at the first failing rule.
// Delete failures are reported but do not fail the call.
func (e *Engine) UploadAll(rules []config.UploadRule) (*Report, error) {
	report := &Report{}
	if len(rules) == 0 {
		log.Printf("no upload rules, nothing to do")
		return report, nil
	}

	for i, rule := range rules {
		log.Printf("[%d/%d] %s %s -> %s", i+1, len(rules), rule.Mode, rule.LocalPath, rule.RemotePath)
		if err := e.apply(rule, report); err != nil {
			return report, fmt.Errorf("upload rule %d (%s): %w", i+1, rule.LocalPath, err)
		}
	}
	return report, nil
}

func (e *Engine) apply(rule config.UploadRule, report *Report) error {
	localPath := config.ExpandPath(rule.LocalPath)
	info, err := localPathExists(localPath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return e.applyFile(localPath, rule.RemotePath, report)
	}

	root := trimSlash(rule.RemotePath)
	if err := e.ensureDir(root); err != nil {
		return err
	}
	if rule.Mode == config.ModeSync {
		return e.sync(localPath, root, rule.DeleteExtra, report)
	}
	return e.copyTree(localPath, root, report)
}

// applyFile uploads a single file. A remote path ending in "/" names the
// destination directory, anything else the destination file.
func (e *Engine) applyFile(localPath, remotePath string, report *Report) error {
	var dir, target string
	if strings.HasSuffix(remotePath, "/") {
		dir = trimSlash(remotePath)
		target = remotePath + filepath.Base(localPath)
	} else {
		dir = path.Dir(remotePath)
		target = remotePath
	}

	if dir != "." && dir != "" {
		if err := e.ensureDir(dir); err != nil {
			return err
		}
	}
	return e.put(localPath, target, report)
}

// copyTree mirrors every local file without looking at the remote side.
func (e *Engine) copyTree(localRoot, remoteRoot string, report *Report) error {
	return walkFiles(localRoot, func(localPath, rel string) error {
		return e.putUnder(localPath, remoteRoot, rel, report)
	})
}

func (e *Engine) sync(localRoot, remoteRoot string, deleteExtra bool, report *Report) error {
	local, err := LocalFiles(localRoot)
	if err != nil {
		return err
	}

	remoteFiles, err := e.lister.List(remoteRoot)
	if err != nil {
		log.Printf("warning: %v, treating %s as empty", err, remoteRoot)
	}

	diff := ComputeDiff(local, remoteFiles)
	log.Printf("sync %s: %d local, %d remote, %d extra", remoteRoot, len(local), len(remoteFiles), len(diff.ToDelete))

	for _, rel := range diff.ToUpload {
		if err := e.putUnder(filepath.Join(localRoot, filepath.FromSlash(rel)), remoteRoot, rel, report); err != nil {
			return err
		}
	}

	if !deleteExtra {
		return nil
	}
	for _, rel := range diff.ToDelete {
		e.remove(path.Join(remoteRoot, rel), report)
	}
	return nil
}

func (e *Engine) putUnder(localPath, remoteRoot, rel string, report *Report) error {
	target := path.Join(remoteRoot, rel)
	if err := e.ensureDir(path.Dir(target)); err != nil {
		return err
	}
	return e.put(localPath, target, report)
}

func (e *Engine) put(localPath, target string, report *Report) error {
	if err := e.upload(localPath, target); err != nil {
		return &UploadError{LocalPath: localPath, Path: target, Err: err}
	}
	report.Uploaded = append(report.Uploaded, target)
	e.observer.FileUploaded(localPath, target)
	return nil
}

func (e *Engine) upload(localPath, target string) error {
	pu, ok := e.session.(remote.ProgressUploader)
	if !ok {
		return e.session.Upload(localPath, target)
	}
	return pu.UploadWithProgress(localPath, target, func(written, total int64) {
		e.observer.FileProgress(localPath, target, written, total)
	})
}

func (e *Engine) remove(target string, report *Report) {
	res := e.session.Exec("rm -f " + remote.Quote(target))
	if !res.Succeeded {
		derr := &DeleteError{Path: target, Output: strings.TrimSpace(res.Output)}
		log.Printf("warning: %v", derr)
		report.DeleteFailures = append(report.DeleteFailures, derr)
		e.observer.DeleteFailed(derr)
		return
	}
	report.Deleted = append(report.Deleted, target)
	e.observer.FileDeleted(target)
}

func (e *Engine) ensureDir(dir string) error {
	if e.ensured[dir] {
		return nil
	}
	res := e.session.Exec("mkdir -p " + remote.Quote(dir))
	if !res.Succeeded {
		return fmt.Errorf("%w %s: %s", ErrRemoteDirectoryCreate, dir, strings.TrimSpace(res.Output))
	}
	e.ensured[dir] = true
	return nil
}
