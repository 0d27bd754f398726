// Package remote runs setup commands on freshly provisioned instances over SSH.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/omozharovskyi/llmvm/pkg/clock"
	"github.com/omozharovskyi/llmvm/pkg/retry"
)

const (
	defaultPort           = 22
	defaultDialTimeout    = 30 * time.Second
	defaultConnectRetries = 5
	defaultConnectDelay   = 10 * time.Second
	defaultReadyRetries   = 10
	defaultReadyDelay     = 5 * time.Second
	defaultCommandTimeout = 10 * time.Minute
)

var errCommandTimeout = errors.New("command timed out")

// Config holds SSH settings for instance setup sessions.
type Config struct {
	User           string
	PrivateKeyPath string
	Port           int
	DialTimeout    time.Duration // per-attempt TCP and handshake bound
	ConnectRetries int
	ConnectDelay   time.Duration
	ReadyRetries   int // attempts waiting for a usable shell
	ReadyDelay     time.Duration
	CommandTimeout time.Duration // bound on a single setup command

	Clock  clock.Clock
	Logger *slog.Logger
}

// Dialer opens setup sessions against instances.
type Dialer struct {
	cfg    Config
	clk    clock.Clock
	logger *slog.Logger
}

func NewDialer(cfg Config) *Dialer {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ConnectRetries == 0 {
		cfg.ConnectRetries = defaultConnectRetries
	}
	if cfg.ConnectDelay == 0 {
		cfg.ConnectDelay = defaultConnectDelay
	}
	if cfg.ReadyRetries == 0 {
		cfg.ReadyRetries = defaultReadyRetries
	}
	if cfg.ReadyDelay == 0 {
		cfg.ReadyDelay = defaultReadyDelay
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{cfg: cfg, clk: clk, logger: logger}
}

// Dial connects to the instance, retrying while sshd is still coming up. A
// key that cannot be read or parsed fails immediately; so does an
// authentication rejection, since retrying cannot fix either.
func (d *Dialer) Dial(ctx context.Context, host string) (*Session, error) {
	keyPath := d.cfg.PrivateKeyPath
	if strings.HasPrefix(keyPath, "~/") {
		home, _ := os.UserHomeDir()
		keyPath = filepath.Join(home, keyPath[2:])
	}

	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parsing SSH private key: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User: d.cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		// The instance was created moments ago; there is no prior host key.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.cfg.DialTimeout,
	}

	addr := net.JoinHostPort(host, strconv.Itoa(d.cfg.Port))

	d.logger.Info("waiting for SSH",
		slog.String("addr", addr),
		slog.String("user", d.cfg.User),
	)

	start := d.clk.Now()
	client, err := retry.DoWithValue(ctx, retry.Config{
		MaxAttempts:   d.cfg.ConnectRetries,
		Delay:         d.cfg.ConnectDelay,
		RetryableFunc: isTransient,
		Clock:         d.clk,
	}, func(ctx context.Context) (*ssh.Client, error) {
		return ssh.Dial("tcp", addr, sshConfig)
	})
	if err != nil {
		return nil, fmt.Errorf("SSH connection to %s failed after %v: %w", addr, d.clk.Since(start), err)
	}

	d.logger.Info("SSH connected",
		slog.String("addr", addr),
		slog.Duration("wait", d.clk.Since(start)),
	)

	return &Session{client: client, cfg: d.cfg, clk: d.clk, logger: d.logger}, nil
}

// isTransient reports whether a dial error is worth another attempt.
// Authentication failures are permanent: the key pair either matches the
// instance metadata or it does not.
func isTransient(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain") {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	return strings.Contains(msg, "handshake failed") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// Session is an established SSH connection to one instance.
type Session struct {
	client    *ssh.Client
	cfg       Config
	clk       clock.Clock
	logger    *slog.Logger
	closeOnce sync.Once
}

// WaitShellReady blocks until the instance answers a trivial command. Cloud
// images accept TCP connections before the login shell is usable, so a
// successful dial alone does not mean setup can start.
func (s *Session) WaitShellReady(ctx context.Context) error {
	err := retry.Do(ctx, retry.Config{
		MaxAttempts: s.cfg.ReadyRetries,
		Delay:       s.cfg.ReadyDelay,
		Clock:       s.clk,
	}, func(ctx context.Context) error {
		stdout, _, err := s.run(ctx, "echo ok")
		if err != nil {
			return err
		}
		if stdout != "ok" {
			return fmt.Errorf("unexpected shell response: %q", stdout)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("shell never became ready: %w", err)
	}
	s.logger.Info("shell ready")
	return nil
}

// Run executes the commands in order. A command that exits non-zero or times
// out is logged and the batch continues: individual setup steps are
// best-effort, and overall success is judged by the availability check that
// follows. Only session-level failures abort the batch.
func (s *Session) Run(ctx context.Context, commands []string) error {
	for i, cmd := range commands {
		num := i + 1
		s.logger.Info("executing command",
			slog.Int("command", num),
			slog.Int("total", len(commands)),
		)

		start := s.clk.Now()
		stdout, stderr, err := s.run(ctx, cmd)

		var exitErr *ssh.ExitError
		switch {
		case err == nil:
			s.logger.Info("command succeeded",
				slog.Int("command", num),
				slog.Duration("duration", s.clk.Since(start)),
			)
		case errors.As(err, &exitErr):
			s.logger.Error("command exited non-zero",
				slog.Int("command", num),
				slog.Int("exit_status", exitErr.ExitStatus()),
				slog.String("stdout", stdout),
				slog.String("stderr", stderr),
			)
		case errors.Is(err, errCommandTimeout):
			s.logger.Error("command timed out",
				slog.Int("command", num),
				slog.Duration("timeout", s.cfg.CommandTimeout),
			)
		default:
			return fmt.Errorf("command %d failed: %w", num, err)
		}
	}
	return nil
}

// run executes one command in a fresh session and returns trimmed output.
func (s *Session) run(ctx context.Context, cmd string) (string, string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("creating SSH session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Start(cmd); err != nil {
		return "", "", fmt.Errorf("starting command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		sess.Close()
		err = ctx.Err()
	case <-s.clk.After(s.cfg.CommandTimeout):
		sess.Close()
		err = errCommandTimeout
	}

	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

// Close shuts the connection down; safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.client.Close()
	})
	return err
}
