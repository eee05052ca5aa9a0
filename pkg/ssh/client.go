// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package ssh

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/vmware/remote-deploy/pkg/remote"
)

// default constants
const (
	DefaultTimeout = 20 * time.Second
	DefaultPort    = 22
)

// Client represents ssh client. It implements remote.Session.
type Client struct {
	*ssh.Client
	sftp  *sftp.Client
	agent io.Closer
}

var _ remote.ProgressUploader = (*Client)(nil)

type Config struct {
	User                 string
	Host                 string
	Port                 int
	Timeout              time.Duration
	Password             string
	PrivateKeyPath       string
	PrivateKeyPassphrase string
	hostKeyCallBack      ssh.HostKeyCallback
}

func (c *Config) SetHostKeyCallback(hostKeyCallBack ssh.HostKeyCallback) {
	c.hostKeyCallBack = hostKeyCallBack
}

// NewClient returns new ssh client and error if any.
func NewClient(config *Config) (*Client, error) {
	c := &Client{}

	// configure Auth as per users config
	auth, agentConn, err := configureAuth(config.Password, config.PrivateKeyPath, config.PrivateKeyPassphrase)
	if err != nil {
		return nil, errors.New("failed to configure auth: " + err.Error())
	}
	c.agent = agentConn

	// configure hostKeyCallback as per users config
	hostKeyCallback, err := configureHostKeyCallback(config.hostKeyCallBack)
	if err != nil {
		c.closeAgent()
		return nil, errors.New("failed to configure hostKeyCallBack: " + err.Error())
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}

	c.Client, err = ssh.Dial("tcp", net.JoinHostPort(config.Host, fmt.Sprint(config.Port)), &ssh.ClientConfig{
		User:            config.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         config.Timeout,
	})
	if err != nil {
		c.closeAgent()
		return nil, err
	}
	return c, nil
}

// Run starts a new SSH session and runs the cmd, it returns CombinedOutput and err if any.
func (c *Client) Run(cmd string) ([]byte, error) {
	sess, err := c.NewSession()
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return sess.CombinedOutput(cmd)
}

// Exec runs cmd and folds the outcome into a remote.Result. A non-zero exit
// keeps the command output; a transport failure appends the error text so the
// caller always has something to report.
func (c *Client) Exec(cmd string) remote.Result {
	out, err := c.Run(cmd)
	if err == nil {
		return remote.Result{Succeeded: true, Output: string(out)}
	}

	output := string(out)
	var ee *ssh.ExitError
	if errors.As(err, &ee) {
		if output == "" {
			output = fmt.Sprintf("exit status %d", ee.ExitStatus())
		}
	} else {
		output = strings.TrimSpace(output + "\n" + err.Error())
	}
	return remote.Result{Succeeded: false, Output: output}
}

// sftpClient lazily opens one sftp subsystem and reuses it for every upload
// on this connection.
func (c *Client) sftpClient() (*sftp.Client, error) {
	if c.sftp != nil {
		return c.sftp, nil
	}
	ftp, err := sftp.NewClient(c.Client)
	if err != nil {
		return nil, err
	}
	c.sftp = ftp
	return ftp, nil
}

// Close the sftp subsystem, if any, and the client net connection.
func (c *Client) Close() error {
	var ftpErr error
	if c.sftp != nil {
		ftpErr = c.sftp.Close()
		c.sftp = nil
	}
	return errors.Join(ftpErr, c.Client.Close(), c.closeAgent())
}

func (c *Client) closeAgent() error {
	if c.agent == nil {
		return nil
	}
	err := c.agent.Close()
	c.agent = nil
	return err
}

// makeTempPath generates temporary file location
func makeTempPath(basePath string) string {
	return path.Join("/tmp", fmt.Sprintf("remote-deploy_%d_%s", time.Now().UnixNano(), path.Base(basePath)))
}

// Upload a local file to remote server. Destinations the login user cannot
// write to are retried through a temporary file and sudo.
func (c *Client) Upload(localPath string, remotePath string) error {
	return c.UploadWithProgress(localPath, remotePath, nil)
}

// UploadWithProgress is Upload with progress reported after every chunk
// written. progress may be nil.
func (c *Client) UploadWithProgress(localPath string, remotePath string, progress remote.ProgressFunc) error {
	local, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer local.Close()

	// Stat to retrieve local file permissions
	localFileInfo, err := local.Stat()
	if err != nil {
		return err
	}

	if err := c.sftpUpload(local, remotePath, localFileInfo, progress); err != nil {
		if isPermissionDenied(err) {
			return c.sudoUpload(local, remotePath, localFileInfo, progress)
		}
		return err
	}

	return nil
}

func (c *Client) sftpUpload(local *os.File, remotePath string, info os.FileInfo, progress remote.ProgressFunc) error {
	// Reset file pointer
	if _, err := local.Seek(0, io.SeekStart); err != nil {
		return err
	}

	ftp, err := c.sftpClient()
	if err != nil {
		return err
	}

	remoteFile, err := ftp.Create(remotePath)
	if err != nil {
		return err
	}
	defer remoteFile.Close()

	var src io.Reader = local
	if progress != nil {
		src = &progressReader{r: local, total: info.Size(), progress: progress}
	}
	if _, err := io.Copy(remoteFile, src); err != nil {
		return err
	}

	// Set remote file mode to match local file permissions
	return remoteFile.Chmod(info.Mode().Perm())
}

func (c *Client) sudoUpload(local *os.File, remotePath string, info os.FileInfo, progress remote.ProgressFunc) error {
	tempPath := makeTempPath(remotePath)

	if err := c.sftpUpload(local, tempPath, info, progress); err != nil {
		return fmt.Errorf("failed to upload to temp path %s: %w", tempPath, err)
	}
	// ensure temporary file is cleaned up
	defer c.Run(fmt.Sprintf("sudo rm -f %s", remote.Quote(tempPath)))

	if out, err := c.Run(fmt.Sprintf("sudo mv %s %s", remote.Quote(tempPath), remote.Quote(remotePath))); err != nil {
		return fmt.Errorf("failed to sudo mv from %s to %s: %w, output: %s", tempPath, remotePath, err, strings.TrimSpace(string(out)))
	}

	if out, err := c.Run(fmt.Sprintf("sudo chmod %o %s", info.Mode().Perm(), remote.Quote(remotePath))); err != nil {
		return fmt.Errorf("failed to sudo chmod on %s: %w, output: %s", remotePath, err, strings.TrimSpace(string(out)))
	}

	return nil
}

// progressReader counts the bytes read from r.
type progressReader struct {
	r        io.Reader
	written  int64
	total    int64
	progress remote.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.progress(p.written, p.total)
	}
	return n, err
}

func isPermissionDenied(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == uint32(sftp.ErrSshFxPermissionDenied) {
			return true
		}
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "permission denied") || strings.Contains(errMsg, "ssh_fx_permission_denied")
}

// Dialer opens ssh sessions for remote.Target values.
type Dialer struct {
	Timeout         time.Duration
	HostKeyCallback ssh.HostKeyCallback
}

// Dial implements remote.Dialer.
func (d *Dialer) Dial(target remote.Target) (remote.Session, error) {
	cfg := &Config{
		User:                 target.User,
		Host:                 target.Host,
		Port:                 target.Port,
		Timeout:              d.Timeout,
		Password:             target.Password,
		PrivateKeyPath:       target.PrivateKeyPath,
		PrivateKeyPassphrase: target.Passphrase,
	}
	cfg.SetHostKeyCallback(d.HostKeyCallback)

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
