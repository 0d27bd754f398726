package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/omozharovskyi/llmvm/pkg/config"
	"github.com/omozharovskyi/llmvm/pkg/notify"
	"github.com/omozharovskyi/llmvm/pkg/ollama"
	"github.com/omozharovskyi/llmvm/pkg/ops"
	"github.com/omozharovskyi/llmvm/pkg/remote"
	"github.com/omozharovskyi/llmvm/pkg/vm/gcp"
)

// sshDialer adapts the concrete SSH dialer to the ops.Dialer interface.
type sshDialer struct {
	d *remote.Dialer
}

func (s sshDialer) Dial(ctx context.Context, host string) (ops.Session, error) {
	return s.d.Dial(ctx, host)
}

// loadConfig reads the config file and installs the logger it describes.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg))
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.String("log_level", "info"))
	if verbosity > 0 {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildStack assembles the compute manager, SSH dialer, availability
// checker, and lifecycle operations from the loaded config. The model may be
// empty for operations that never touch it.
func buildStack(cfg *config.Config, model string) (*ops.Ops, error) {
	logger := slog.Default()

	sshUser := cfg.String("ssh.user", "jbllm")
	sshPublicKey, err := readKeyFile(cfg.String("ssh.public_key_file", ""))
	if err != nil {
		return nil, fmt.Errorf("reading SSH public key: %w", err)
	}

	manager, err := gcp.New(gcp.Config{
		Project:          cfg.String("gcp.project", ""),
		SAKeyFile:        cfg.String("gcp.sa_key_file", ""),
		MachineType:      cfg.String("gcp.machine_type", ""),
		ImageProject:     cfg.String("gcp.image_project", ""),
		ImageFamily:      cfg.String("gcp.image_family", ""),
		DiskSizeGB:       cfg.Int("gcp.disk_size_gb", 0),
		Accelerator:      cfg.String("gcp.gpu_accelerator", ""),
		RestartOnFailure: cfg.Bool("gcp.restart_on_failure", false),
		SSHUser:          sshUser,
		SSHPublicKey:     sshPublicKey,
		NetworkTag:       cfg.String("gcp.firewall_tag", ""),
		FirewallRule:     cfg.String("gcp.firewall_rule", ""),
		FirewallPort:     ollama.DefaultPort,
		ZonePriority:     cfg.StringSlice("gcp.zone_priority", nil),
		ZoneBackoff:      cfg.Duration("gcp.zone_backoff", 0),
		OperationTimeout: cfg.Duration("gcp.operation_timeout", 0),
		InstanceTimeout:  cfg.Duration("gcp.instance_timeout", 0),
		PollInterval:     cfg.Duration("gcp.poll_interval", 0),
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building compute manager: %w", err)
	}

	dialer := remote.NewDialer(remote.Config{
		User:           sshUser,
		PrivateKeyPath: cfg.String("ssh.private_key_file", ""),
		Logger:         logger,
	})

	checker := ollama.New(ollama.Config{
		CheckRetries:  cfg.Int("ollama.check_retries", 0),
		CheckInterval: cfg.Duration("ollama.check_interval", 0),
		Logger:        logger,
	})

	return ops.New(ops.Config{
		Manager:  manager,
		Dialer:   sshDialer{d: dialer},
		Checker:  checker,
		Notifier: newNotifier(cfg, logger),
		Model:    model,
		MyIPURL:  cfg.String("my_ip_url", ""),
		Logger:   logger,
	}), nil
}

// newNotifier picks the webhook notifier when a URL is configured, otherwise
// events go to the log.
func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	url := cfg.String("notify.webhook_url", "")
	if url == "" {
		return notify.NewLogNotifier(logger)
	}
	headers := make(map[string]string)
	for k, v := range cfg.Section("notify.headers") {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	return notify.NewWebhookNotifier(notify.WebhookConfig{
		URL:     url,
		Timeout: cfg.Duration("notify.timeout", 0),
		Headers: headers,
	}, logger)
}

// resolveInstanceName falls back to the configured name when the flag is
// empty.
func resolveInstanceName(flag string, cfg *config.Config) (string, error) {
	name := flag
	if name == "" {
		name = cfg.String("gcp.instance_name", "")
	}
	if name == "" {
		return "", fmt.Errorf("no instance name: set gcp.instance_name or pass --name")
	}
	return name, nil
}

// resolveModel falls back to the configured model when the flag is empty.
func resolveModel(flag string, cfg *config.Config) (string, error) {
	model := flag
	if model == "" {
		model = cfg.String("llm_model", "")
	}
	if model == "" {
		return "", fmt.Errorf("no model configured: set llm_model or pass --model")
	}
	return model, nil
}

// readKeyFile loads key material, expanding a leading ~/.
func readKeyFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
