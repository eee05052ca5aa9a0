// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package filesync

import (
	"errors"
	"fmt"
)

var (
	ErrLocalPathMissing      = errors.New("local path does not exist")
	ErrRemoteDirectoryCreate = errors.New("failed to create remote directory")
)

// UploadError reports a file that could not be transferred. It aborts the
// upload stage.
type UploadError struct {
	LocalPath string
	Path      string
	Err       error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s to %s: %v", e.LocalPath, e.Path, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// DeleteError reports a remote file that could not be removed during sync.
// It is recorded but never fails the upload stage.
type DeleteError struct {
	Path   string
	Output string
}

func (e *DeleteError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("failed to delete %s", e.Path)
	}
	return fmt.Sprintf("failed to delete %s: %s", e.Path, e.Output)
}
