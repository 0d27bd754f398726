// Package ops wires instance management, remote setup, and availability
// checking into the user-facing lifecycle operations.
package ops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/omozharovskyi/llmvm/pkg/notify"
	"github.com/omozharovskyi/llmvm/pkg/ollama"
	"github.com/omozharovskyi/llmvm/pkg/vm"
)

const defaultMyIPURL = "https://api.ipify.org"

// Session is an established setup channel to an instance.
type Session interface {
	WaitShellReady(ctx context.Context) error
	Run(ctx context.Context, commands []string) error
	Close() error
}

// Dialer opens setup sessions.
type Dialer interface {
	Dial(ctx context.Context, host string) (Session, error)
}

// Checker verifies the inference server answers with the model loaded.
type Checker interface {
	WaitModelAvailable(ctx context.Context, host, model string) bool
}

// Config wires the collaborators for lifecycle operations.
type Config struct {
	Manager  vm.Manager
	Dialer   Dialer
	Checker  Checker
	Notifier notify.Notifier

	Model   string // model to pull and verify
	MyIPURL string // where to learn the caller's public address

	HTTPClient *http.Client // used for the caller address lookup
	Logger     *slog.Logger
}

// Ops carries out the provisioning lifecycle.
type Ops struct {
	manager  vm.Manager
	dialer   Dialer
	checker  Checker
	notifier notify.Notifier
	model    string
	myIPURL  string
	client   *http.Client
	logger   *slog.Logger
}

func New(cfg Config) *Ops {
	myIPURL := cfg.MyIPURL
	if myIPURL == "" {
		myIPURL = defaultMyIPURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	return &Ops{
		manager:  cfg.Manager,
		dialer:   cfg.Dialer,
		checker:  cfg.Checker,
		notifier: notifier,
		model:    cfg.Model,
		myIPURL:  myIPURL,
		client:   client,
		logger:   logger,
	}
}

// Create provisions a GPU instance, installs the inference server on it,
// opens the firewall to the caller, and verifies the model is served. An
// instance that already exists is reported and left alone.
func (o *Ops) Create(ctx context.Context, name string) error {
	exists, err := o.manager.InstanceExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking for existing instance: %w", err)
	}
	if exists {
		o.logger.Warn("instance already exists, not creating", slog.String("instance", name))
		instances, err := o.manager.ListInstances(ctx)
		if err != nil {
			return fmt.Errorf("listing instances: %w", err)
		}
		for _, inst := range instances {
			o.logger.Info("existing instance",
				slog.String("name", inst.Name),
				slog.String("zone", inst.Zone),
				slog.String("status", inst.Status),
			)
		}
		return nil
	}

	if err := o.manager.CreateInstance(ctx, name); err != nil {
		o.notify(ctx, notify.EventInstanceCreateFailed, fmt.Sprintf("creating instance %s failed: %v", name, err))
		return fmt.Errorf("creating instance: %w", err)
	}
	o.notify(ctx, notify.EventInstanceCreated, fmt.Sprintf("instance %s created", name))

	zone, err := o.manager.FindInstanceZone(ctx, name)
	if err != nil {
		return fmt.Errorf("locating instance: %w", err)
	}
	ip, err := o.manager.ExternalIP(ctx, zone, name)
	if err != nil {
		return fmt.Errorf("resolving external address: %w", err)
	}

	if err := o.setupInference(ctx, ip); err != nil {
		return err
	}

	if !o.checker.WaitModelAvailable(ctx, ip, o.model) {
		return fmt.Errorf("model %s never became available on %s", o.model, ip)
	}

	o.logger.Info("inference server ready",
		slog.String("instance", name),
		slog.String("url", fmt.Sprintf("http://%s:%d", ip, ollama.DefaultPort)),
		slog.String("model", o.model),
	)
	o.notify(ctx, notify.EventModelReady, fmt.Sprintf("model %s serving on %s", o.model, ip))
	return nil
}

// Start boots a stopped instance and reports whether the model answers again.
func (o *Ops) Start(ctx context.Context, name string) error {
	if err := o.manager.StartInstance(ctx, name); err != nil {
		if errors.Is(err, vm.ErrNotFound) {
			o.logger.Error("instance not found", slog.String("instance", name))
		}
		return fmt.Errorf("starting instance: %w", err)
	}
	o.notify(ctx, notify.EventInstanceStarted, fmt.Sprintf("instance %s started", name))

	zone, err := o.manager.FindInstanceZone(ctx, name)
	if err != nil {
		return fmt.Errorf("locating instance: %w", err)
	}
	ip, err := o.manager.ExternalIP(ctx, zone, name)
	if err != nil {
		return fmt.Errorf("resolving external address: %w", err)
	}

	if !o.checker.WaitModelAvailable(ctx, ip, o.model) {
		// The instance is up even if the model is not answering yet.
		o.logger.Warn("model not yet available after start",
			slog.String("instance", name),
			slog.String("model", o.model),
		)
		return nil
	}

	o.logger.Info("inference server ready",
		slog.String("instance", name),
		slog.String("url", fmt.Sprintf("http://%s:%d", ip, ollama.DefaultPort)),
		slog.String("model", o.model),
	)
	return nil
}

// Stop halts the instance; the disk and the pulled model survive.
func (o *Ops) Stop(ctx context.Context, name string) error {
	if err := o.manager.StopInstance(ctx, name); err != nil {
		return fmt.Errorf("stopping instance: %w", err)
	}
	o.notify(ctx, notify.EventInstanceStopped, fmt.Sprintf("instance %s stopped", name))
	return nil
}

// Delete removes the instance entirely.
func (o *Ops) Delete(ctx context.Context, name string) error {
	if err := o.manager.DeleteInstance(ctx, name); err != nil {
		return fmt.Errorf("deleting instance: %w", err)
	}
	o.notify(ctx, notify.EventInstanceDeleted, fmt.Sprintf("instance %s deleted", name))
	return nil
}

// List returns the instances visible to the project.
func (o *Ops) List(ctx context.Context) ([]vm.Instance, error) {
	return o.manager.ListInstances(ctx)
}

// setupInference installs and configures the inference stack over SSH, then
// opens the firewall so the caller can reach it.
func (o *Ops) setupInference(ctx context.Context, ip string) error {
	session, err := o.dialer.Dial(ctx, ip)
	if err != nil {
		return fmt.Errorf("connecting to instance: %w", err)
	}
	defer session.Close()

	if err := session.WaitShellReady(ctx); err != nil {
		return err
	}
	if err := session.Run(ctx, ollama.SetupCommands(o.model)); err != nil {
		return fmt.Errorf("running setup commands: %w", err)
	}

	callerIP, err := o.callerIP(ctx)
	if err != nil {
		return fmt.Errorf("resolving caller address: %w", err)
	}
	if err := o.manager.EnsureFirewallRule(ctx, callerIP); err != nil {
		return fmt.Errorf("opening firewall: %w", err)
	}
	return nil
}

// callerIP asks an external echo service for our public address, which is
// what the firewall rule must admit.
func (o *Ops) callerIP(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", o.myIPURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", o.myIPURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("ip service returned %q, not an address", ip)
	}
	return ip, nil
}

// notify publishes an event; notification failures are logged, never fatal.
func (o *Ops) notify(ctx context.Context, eventType, message string) {
	err := o.notifier.Notify(ctx, notify.Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		o.logger.Warn("notification failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
