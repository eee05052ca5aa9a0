// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package remote defines the session contract the deployment core consumes
// from the transport.
package remote

import "strings"

// Result is the outcome of one remote command.
type Result struct {
	Succeeded bool
	Output    string
}

// HasOutput reports whether the command printed anything besides whitespace.
func (r Result) HasOutput() bool {
	return strings.TrimSpace(r.Output) != ""
}

// Session is an authenticated channel to one host. Calls are synchronous and
// must not overlap.
type Session interface {
	// Exec runs cmd and reports whether it exited successfully along with
	// its combined output.
	Exec(cmd string) Result
	// Upload copies the local file to remotePath. The parent directory of
	// remotePath must already exist.
	Upload(localPath, remotePath string) error
	Close() error
}

// ProgressFunc receives the bytes of a file written so far and its size.
type ProgressFunc func(written, total int64)

// ProgressUploader is implemented by sessions that can report transfer
// progress while uploading.
type ProgressUploader interface {
	UploadWithProgress(localPath, remotePath string, progress ProgressFunc) error
}

// Target carries everything needed to open a Session. Credentials are passed
// explicitly and never read from process state by the transport.
type Target struct {
	Host           string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	Passphrase     string
}

type Dialer interface {
	Dial(target Target) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(target Target) (Session, error)

func (f DialerFunc) Dial(target Target) (Session, error) {
	return f(target)
}
