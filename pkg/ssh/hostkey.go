// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package ssh

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrHostKeyRejected is returned when an unknown host key is not accepted.
var ErrHostKeyRejected = errors.New("host key verification cancelled by user")

// DefaultKnownHostsPath returns default user knows hosts file.
func DefaultKnownHostsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".ssh", "known_hosts"), nil
}

// HostKeyPrompt verifies host keys against a known_hosts file. Unknown hosts
// are confirmed with the operator, OpenSSH style, and appended to the file.
// A key that differs from the recorded one is always rejected.
type HostKeyPrompt struct {
	KnownHostsPath string
	In             io.Reader
	Out            io.Writer
	// NonInteractive rejects unknown hosts instead of asking.
	NonInteractive bool
}

// Callback returns the ssh.HostKeyCallback for p. It is idempotent: hosts
// already present in known_hosts are validated without prompting.
func (p *HostKeyPrompt) Callback() (ssh.HostKeyCallback, error) {
	if p.KnownHostsPath == "" {
		path, err := DefaultKnownHostsPath()
		if err != nil {
			return nil, err
		}
		p.KnownHostsPath = path
	}
	if p.In == nil {
		p.In = os.Stdin
	}
	if p.Out == nil {
		p.Out = os.Stdout
	}

	if err := ensureKnownHostsFile(p.KnownHostsPath); err != nil {
		return nil, fmt.Errorf("failed to ensure known_hosts file exists: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		// Re-read known_hosts on every attempt to pick up keys added meanwhile.
		known, err := knownhosts.New(p.KnownHostsPath)
		if err != nil {
			return fmt.Errorf("failed to read known_hosts %s: %w", p.KnownHostsPath, err)
		}

		err = known(lookupHostname(hostname, remote), remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return err
		}
		if len(keyErr.Want) > 0 {
			return fmt.Errorf("host key for %s does not match %s, possible man-in-the-middle attack: %w", hostname, p.KnownHostsPath, err)
		}
		if p.NonInteractive {
			return fmt.Errorf("host %s is not in %s (add it with ssh-keyscan): %w", hostname, p.KnownHostsPath, err)
		}
		return p.confirm(hostname, remote, key)
	}, nil
}

// lookupHostname appends the remote port to hostname when it has none, so
// non-default ports are matched as [host]:port entries.
func lookupHostname(hostname string, remote net.Addr) string {
	if tcpAddr, ok := remote.(*net.TCPAddr); ok && !strings.Contains(hostname, ":") {
		return net.JoinHostPort(hostname, fmt.Sprint(tcpAddr.Port))
	}
	return hostname
}

func (p *HostKeyPrompt) confirm(hostname string, remote net.Addr, key ssh.PublicKey) error {
	fingerprint := getHostKeyFingerprint(key)

	fmt.Fprintf(p.Out, "\nThe authenticity of host '%s (%s)' can't be established.\n", hostname, remote.String())
	fmt.Fprintf(p.Out, "%s key fingerprint is %s.\n", key.Type(), fingerprint)
	fmt.Fprintf(p.Out, "This key is not known by any other names.\n")
	fmt.Fprintf(p.Out, "Are you sure you want to continue connecting (yes/no/[fingerprint])? ")

	response, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	if response != "yes" && response != "y" && response != strings.ToLower(fingerprint) {
		return ErrHostKeyRejected
	}

	if err := addHostKeyToKnownHosts(hostname, remote, key, p.KnownHostsPath); err != nil {
		return fmt.Errorf("failed to add host key to known_hosts: %w", err)
	}

	fmt.Fprintf(p.Out, "Warning: Permanently added '%s' (%s) to the list of known hosts.\n", hostname, key.Type())
	return nil
}

// getHostKeyFingerprint returns the SHA256 fingerprint of the host key
// in the format used by OpenSSH (SHA256:...).
func getHostKeyFingerprint(key ssh.PublicKey) string {
	hash := sha256.Sum256(key.Marshal())
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(hash[:])
}

// addHostKeyToKnownHosts appends a known_hosts line for hostname and, for TCP
// remotes, its IP address.
func addHostKeyToKnownHosts(hostname string, remote net.Addr, key ssh.PublicKey, knownHostsPath string) error {
	file, err := os.OpenFile(knownHostsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts file: %w", err)
	}
	defer file.Close()

	addresses := []string{knownhosts.Normalize(lookupHostname(hostname, remote))}
	if tcpAddr, ok := remote.(*net.TCPAddr); ok && tcpAddr.IP.String() != hostname {
		addresses = append(addresses, knownhosts.Normalize(tcpAddr.String()))
	}

	if _, err := file.WriteString(knownhosts.Line(addresses, key) + "\n"); err != nil {
		return fmt.Errorf("failed to write to known_hosts file: %w", err)
	}

	return nil
}

// ensureKnownHostsFile ensures the known_hosts file and its directory exist.
func ensureKnownHostsFile(knownHostsPath string) error {
	if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0o700); err != nil {
		return fmt.Errorf("failed to create .ssh directory: %w", err)
	}

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		file, err := os.OpenFile(knownHostsPath, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create known_hosts file: %w", err)
		}
		file.Close()
	}

	return nil
}

// configureHostKeyCallback returns the custom callback when provided and an
// interactive known_hosts prompt otherwise.
func configureHostKeyCallback(hostKeyCallback ssh.HostKeyCallback) (ssh.HostKeyCallback, error) {
	if hostKeyCallback != nil {
		return hostKeyCallback, nil
	}
	return (&HostKeyPrompt{}).Callback()
}
