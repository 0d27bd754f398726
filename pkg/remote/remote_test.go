package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/omozharovskyi/llmvm/pkg/clock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatalf("marshaling key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("writing key: %v", err)
	}
	return path
}

func TestNewDialer_Defaults(t *testing.T) {
	d := NewDialer(Config{User: "jbllm", PrivateKeyPath: "/tmp/key"})

	if d.cfg.Port != 22 {
		t.Errorf("Port = %d, want 22", d.cfg.Port)
	}
	if d.cfg.DialTimeout != 30*time.Second {
		t.Errorf("DialTimeout = %v, want 30s", d.cfg.DialTimeout)
	}
	if d.cfg.ConnectRetries != 5 {
		t.Errorf("ConnectRetries = %d, want 5", d.cfg.ConnectRetries)
	}
	if d.cfg.ConnectDelay != 10*time.Second {
		t.Errorf("ConnectDelay = %v, want 10s", d.cfg.ConnectDelay)
	}
	if d.cfg.ReadyRetries != 10 {
		t.Errorf("ReadyRetries = %d, want 10", d.cfg.ReadyRetries)
	}
	if d.cfg.ReadyDelay != 5*time.Second {
		t.Errorf("ReadyDelay = %v, want 5s", d.cfg.ReadyDelay)
	}
	if d.cfg.CommandTimeout != 10*time.Minute {
		t.Errorf("CommandTimeout = %v, want 10m", d.cfg.CommandTimeout)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			"auth rejected",
			errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey], no supported methods remain"),
			false,
		},
		{"network timeout", &net.DNSError{IsTimeout: true}, true},
		{"eof", io.EOF, true},
		{"handshake dropped", errors.New("ssh: handshake failed: EOF"), true},
		{"connection refused", errors.New("dial tcp 10.0.0.5:22: connect: connection refused"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"other", errors.New("something else entirely"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDialer_Dial_MissingKey(t *testing.T) {
	clk := clock.NewFakeClock(time.Unix(1700000000, 0))
	d := NewDialer(Config{
		User:           "jbllm",
		PrivateKeyPath: filepath.Join(t.TempDir(), "missing"),
		Clock:          clk,
		Logger:         testLogger(),
	})

	_, err := d.Dial(context.Background(), "192.0.2.1")
	if err == nil {
		t.Fatal("Dial() should fail for a missing key")
	}
	if !strings.Contains(err.Error(), "reading SSH private key") {
		t.Errorf("unexpected error: %v", err)
	}
	if len(clk.Slept()) != 0 {
		t.Errorf("slept %v, want no retries before the key loads", clk.Slept())
	}
}

func TestDialer_Dial_BadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	if err := os.WriteFile(path, []byte("not a key"), 0o600); err != nil {
		t.Fatal(err)
	}

	d := NewDialer(Config{
		User:           "jbllm",
		PrivateKeyPath: path,
		Clock:          clock.NewFakeClock(time.Unix(1700000000, 0)),
		Logger:         testLogger(),
	})

	_, err := d.Dial(context.Background(), "192.0.2.1")
	if err == nil {
		t.Fatal("Dial() should fail for an unparseable key")
	}
	if !strings.Contains(err.Error(), "parsing SSH private key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDialer_Dial_ExpandsHomeDir(t *testing.T) {
	d := NewDialer(Config{
		User:           "jbllm",
		PrivateKeyPath: "~/definitely-missing-test-key",
		Logger:         testLogger(),
	})

	_, err := d.Dial(context.Background(), "192.0.2.1")
	if err == nil {
		t.Fatal("Dial() should fail for a missing key")
	}
	if strings.Contains(err.Error(), "~/") {
		t.Errorf("key path was not expanded: %v", err)
	}
}

func TestDialer_Dial_RetriesHandshakeFailure(t *testing.T) {
	// A listener that drops every connection makes each handshake fail
	// without a real sshd.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}

	clk := clock.NewFakeClock(time.Unix(1700000000, 0))
	d := NewDialer(Config{
		User:           "jbllm",
		PrivateKeyPath: writeTestKey(t),
		Port:           port,
		ConnectRetries: 3,
		ConnectDelay:   2 * time.Second,
		Clock:          clk,
		Logger:         testLogger(),
	})

	_, err = d.Dial(context.Background(), "127.0.0.1")
	if err == nil {
		t.Fatal("Dial() should fail against a server that drops connections")
	}
	if !strings.Contains(err.Error(), "SSH connection to") {
		t.Errorf("unexpected error: %v", err)
	}

	slept := clk.Slept()
	if len(slept) != 2 {
		t.Fatalf("retry pauses = %d, want 2 for 3 attempts", len(slept))
	}
	for _, pause := range slept {
		if pause != 2*time.Second {
			t.Errorf("pause = %v, want 2s", pause)
		}
	}
}
