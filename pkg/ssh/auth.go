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

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Auth represents ssh auth methods.
type Auth []ssh.AuthMethod

// configureAuth prefers an explicit password, then a private key. A running
// ssh-agent is offered as an extra method after the key, or on its own when
// nothing else is configured. The returned closer releases the agent
// connection and is nil when no agent is used.
func configureAuth(password, privateKeyFile, passphrase string) (Auth, io.Closer, error) {
	if password != "" {
		return Password(password), nil, nil
	}

	var auth Auth
	if privateKeyFile != "" {
		keyAuth, err := PrivateKey(privateKeyFile, passphrase)
		if err != nil {
			return nil, nil, err
		}
		auth = append(auth, keyAuth...)
	}
	agentAuth, agentConn := Agent()
	auth = append(auth, agentAuth...)

	if len(auth) == 0 {
		return nil, nil, fmt.Errorf("no private key/password found to configure SSH auth")
	}
	return auth, agentConn, nil
}

// Password returns password auth method.
func Password(pass string) Auth {
	return Auth{
		ssh.Password(pass),
	}
}

// PrivateKey returns auth method from private key with or without passphrase.
func PrivateKey(prvFile string, passphrase string) (Auth, error) {
	signer, err := getSigner(prvFile, passphrase)
	if err != nil {
		return nil, err
	}
	return Auth{
		ssh.PublicKeys(signer),
	}, nil
}

// Agent returns the signers of the ssh-agent listening on SSH_AUTH_SOCK
// together with the agent connection, which the caller must close. Both are
// nil when no agent is reachable.
func Agent() (Auth, io.Closer) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil
	}
	return Auth{
		ssh.PublicKeysCallback(agent.NewClient(conn).Signers),
	}, conn
}

// getSigner returns ssh signer from private key file.
func getSigner(prvFile string, passphrase string) (ssh.Signer, error) {
	privateKey, err := os.ReadFile(prvFile)
	if err != nil {
		return nil, fmt.Errorf("could not read private key: %w", err)
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(privateKey, []byte(passphrase))
	}

	signer, err := ssh.ParsePrivateKey(privateKey)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return nil, fmt.Errorf("private key %s is encrypted; set auth.password or REMOTE_DEPLOY_PASSPHRASE", prvFile)
	}
	return signer, err
}
