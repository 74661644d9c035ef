// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package remote

import (
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/szbani/kioskfleet/internal/config"
)

// Session runs commands on one remote machine. Implementations are not
// required to be safe for concurrent use; the adapter issues commands
// sequentially per call.
type Session interface {
	// Run executes a command and returns its combined output.
	Run(cmd string) (string, error)
	Close() error
}

// Dialer opens sessions against target hosts.
type Dialer interface {
	Dial(host string) (Session, error)
}

// sshDialer opens password-authenticated SSH sessions with the configured
// credentials.
type sshDialer struct {
	cfg config.SSHConfig
}

// NewSSHDialer creates the production dialer.
func NewSSHDialer(cfg config.SSHConfig) Dialer {
	return &sshDialer{cfg: cfg}
}

func (d *sshDialer) Dial(host string) (Session, error) {
	clientConfig := &ssh.ClientConfig{
		User: d.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(d.cfg.Password),
		},
		// Kiosk machines are provisioned on the managed network; host
		// keys are not pinned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.cfg.ConnectTimeout,
	}

	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", host, d.cfg.Port), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", host, err)
	}
	return &sshSession{client: client, commandTimeout: d.cfg.CommandTimeout}, nil
}

// sshSession issues each command on a fresh ssh.Session over one client
// connection.
type sshSession struct {
	client         *ssh.Client
	commandTimeout time.Duration
}

func (s *sshSession) Run(cmd string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	type outcome struct {
		output []byte
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		output, err := session.CombinedOutput(cmd)
		done <- outcome{output: output, err: err}
	}()

	timeout := s.commandTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case res := <-done:
		if res.err != nil {
			return string(res.output), fmt.Errorf("run %q: %w", cmd, res.err)
		}
		return string(res.output), nil
	case <-time.After(timeout):
		session.Close()
		return "", fmt.Errorf("run %q: timed out after %s", cmd, timeout)
	}
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
