// Package gcp manages virtual machines through the Compute Engine v1 REST API.
package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/omozharovskyi/llmvm/pkg/clock"
	"github.com/omozharovskyi/llmvm/pkg/poll"
	"github.com/omozharovskyi/llmvm/pkg/vm"
	"github.com/omozharovskyi/llmvm/pkg/zone"
)

const (
	defaultBaseURL = "https://compute.googleapis.com/compute/v1"
	defaultTimeout = 60 * time.Second
	computeScope   = "https://www.googleapis.com/auth/compute"

	defaultMachineType  = "n1-standard-1"
	defaultImageProject = "ubuntu-os-cloud"
	defaultImageFamily  = "ubuntu-2204-lts"
	defaultDiskSizeGB   = 10
	defaultAccelerator  = "nvidia-tesla-t4"
	defaultZoneBackoff  = 10 * time.Second
	defaultNetworkTag   = "ollama-server"
	defaultFirewallRule = "allow-ollama-api-from-my-ip"
	defaultFirewallPort = 11434
)

// instanceAbsent is the synthetic status reported once an instance GET
// returns 404. Deletion has no terminal status of its own; absence is the
// terminal condition.
const instanceAbsent = "ABSENT"

// Capacity errors mean "try another zone" rather than "give up".
var capacityErrorCodes = []string{
	"ZONE_RESOURCE_POOL_EXHAUSTED",
	"ZONE_RESOURCE_POOL_EXHAUSTED_WITH_DETAILS",
}

// Manager implements vm.Manager on Google Compute Engine.
type Manager struct {
	project string
	baseURL string
	client  *http.Client
	cfg     Config
	clk     clock.Clock
	logger  *slog.Logger
}

// Config holds settings for the Compute Engine manager.
type Config struct {
	Project   string // GCP project ID
	SAKeyFile string // service account key file; empty uses Application Default Credentials

	MachineType      string // e.g. "n1-standard-4"
	ImageProject     string // project owning the boot image family
	ImageFamily      string // boot image family, e.g. "ubuntu-2204-lts"
	DiskSizeGB       int
	Accelerator      string // GPU accelerator type, e.g. "nvidia-tesla-t4"
	RestartOnFailure bool   // restart automatically after a host failure
	SSHUser          string
	SSHPublicKey     string // public key material for instance metadata

	NetworkTag   string // tag the firewall rule targets
	FirewallRule string // firewall rule name
	FirewallPort int    // port the firewall rule admits

	ZonePriority     []string      // zone prefix priority; empty uses zone.DefaultOrder
	ZoneBackoff      time.Duration // pause before trying the next zone
	OperationTimeout time.Duration // wait bound for compute operations
	InstanceTimeout  time.Duration // wait bound for instance state changes
	PollInterval     time.Duration // pause between status fetches

	BaseURL string        // Optional, for testing
	Timeout time.Duration // HTTP client timeout

	Clock  clock.Clock
	Logger *slog.Logger
}

func (cfg *Config) applyDefaults() {
	if cfg.MachineType == "" {
		cfg.MachineType = defaultMachineType
	}
	if cfg.ImageProject == "" {
		cfg.ImageProject = defaultImageProject
	}
	if cfg.ImageFamily == "" {
		cfg.ImageFamily = defaultImageFamily
	}
	if cfg.DiskSizeGB == 0 {
		cfg.DiskSizeGB = defaultDiskSizeGB
	}
	if cfg.Accelerator == "" {
		cfg.Accelerator = defaultAccelerator
	}
	if cfg.NetworkTag == "" {
		cfg.NetworkTag = defaultNetworkTag
	}
	if cfg.FirewallRule == "" {
		cfg.FirewallRule = defaultFirewallRule
	}
	if cfg.FirewallPort == 0 {
		cfg.FirewallPort = defaultFirewallPort
	}
	if cfg.ZoneBackoff == 0 {
		cfg.ZoneBackoff = defaultZoneBackoff
	}
}

// New creates a Compute Engine manager. Credentials come from the service
// account key file when configured, otherwise from Application Default
// Credentials.
func New(cfg Config) (*Manager, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("project is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	ctx := context.Background()
	var client *http.Client
	if cfg.SAKeyFile != "" {
		data, err := os.ReadFile(cfg.SAKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading service account key: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, computeScope)
		if err != nil {
			return nil, fmt.Errorf("parsing service account key: %w", err)
		}
		client = oauth2.NewClient(ctx, creds.TokenSource)
	} else {
		var err error
		client, err = google.DefaultClient(ctx, computeScope)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticated client: %w", err)
		}
	}
	client.Timeout = timeout

	return newManager(cfg, client), nil
}

// NewWithClient creates a Compute Engine manager with a custom HTTP client
// (for testing).
func NewWithClient(cfg Config, client *http.Client) *Manager {
	return newManager(cfg, client)
}

func newManager(cfg Config, client *http.Client) *Manager {
	cfg.applyDefaults()

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		project: cfg.Project,
		baseURL: baseURL,
		client:  client,
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
	}
}

// CreateInstance provisions the instance, working through candidate zones in
// priority order. A zone that is out of GPU capacity is skipped after a
// short pause; any other operation error aborts the create, since the
// partial attempt may already hold the instance name.
func (m *Manager) CreateInstance(ctx context.Context, name string) error {
	zones, err := m.zonesWithAccelerator(ctx)
	if err != nil {
		return fmt.Errorf("listing zones offering %s: %w", m.cfg.Accelerator, err)
	}
	if len(zones) == 0 {
		return fmt.Errorf("accelerator %s offered in no zone: %w", m.cfg.Accelerator, vm.ErrNoZoneAvailable)
	}

	sort.Strings(zones)
	ranked := zone.Rank(zones, m.cfg.ZonePriority)

	for i, zn := range ranked {
		if i > 0 {
			m.clk.Sleep(m.cfg.ZoneBackoff)
		}

		m.logger.Info("creating instance",
			slog.String("instance", name),
			slog.String("zone", zn),
			slog.Int("attempt", i+1),
			slog.Int("zones", len(ranked)),
		)

		created, err := m.createInZone(ctx, name, zn)
		if err != nil {
			return err
		}
		if created {
			m.logger.Info("instance created",
				slog.String("instance", name),
				slog.String("zone", zn),
			)
			return nil
		}

		m.logger.Warn("zone out of capacity",
			slog.String("instance", name),
			slog.String("zone", zn),
		)
	}

	return fmt.Errorf("creating instance %s: %w", name, vm.ErrNoZoneAvailable)
}

// createInZone returns false with a nil error when the zone had no capacity
// for the instance, so the caller can move on to the next zone.
func (m *Manager) createInZone(ctx context.Context, name, zn string) (bool, error) {
	op, err := m.insertInstance(ctx, name, zn)
	if err != nil {
		return false, fmt.Errorf("inserting instance %s in %s: %w", name, zn, err)
	}

	finalOp, done := m.waitOperation(ctx, zn, op.Name)
	if !done {
		if finalOp.hasErrorCode(capacityErrorCodes...) {
			return false, nil
		}
		return false, operationFailure(finalOp, fmt.Sprintf("insert operation for %s in %s", name, zn))
	}

	if !m.waitInstanceStatus(ctx, zn, name, "RUNNING", []string{"PROVISIONING", "STAGING"}, []string{"TERMINATED"}) {
		return false, fmt.Errorf("instance %s in %s did not reach RUNNING", name, zn)
	}
	return true, nil
}

// StartInstance starts a stopped instance and waits for it to run.
func (m *Manager) StartInstance(ctx context.Context, name string) error {
	zn, err := m.FindInstanceZone(ctx, name)
	if err != nil {
		return err
	}

	if err := m.instanceAction(ctx, zn, name, "start"); err != nil {
		return err
	}
	if !m.waitInstanceStatus(ctx, zn, name, "RUNNING", []string{"PROVISIONING", "STAGING"}, nil) {
		return fmt.Errorf("instance %s did not reach RUNNING", name)
	}
	return nil
}

// StopInstance stops a running instance and waits for it to halt.
func (m *Manager) StopInstance(ctx context.Context, name string) error {
	zn, err := m.FindInstanceZone(ctx, name)
	if err != nil {
		return err
	}

	if err := m.instanceAction(ctx, zn, name, "stop"); err != nil {
		return err
	}
	if !m.waitInstanceStatus(ctx, zn, name, "TERMINATED", []string{"RUNNING", "STOPPING", "SUSPENDING"}, nil) {
		return fmt.Errorf("instance %s did not reach TERMINATED", name)
	}
	return nil
}

// DeleteInstance deletes the instance and waits until a status fetch reports
// it gone. Deleting an instance that does not exist returns ErrNotFound
// without issuing any mutating call.
func (m *Manager) DeleteInstance(ctx context.Context, name string) error {
	zn, err := m.FindInstanceZone(ctx, name)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/projects/%s/zones/%s/instances/%s?requestId=%s", m.baseURL, m.project, zn, name, uuid.NewString())
	httpReq, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return m.parseError(resp)
	}

	// A 204 carries no operation body; the absence poll below still confirms
	// the delete.
	var op operationData
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if op.Name != "" {
		if finalOp, done := m.waitOperation(ctx, zn, op.Name); !done {
			return operationFailure(finalOp, fmt.Sprintf("delete operation for %s", name))
		}
	}

	gone := poll.WaitForState(ctx, poll.Config{
		Name:         fmt.Sprintf("instance %s", name),
		Accept:       []string{instanceAbsent},
		Transitional: []string{"RUNNING", "STOPPING", "TERMINATED"},
		Timeout:      m.cfg.InstanceTimeout,
		Interval:     m.cfg.PollInterval,
		Clock:        m.clk,
		Logger:       m.logger,
	}, func(ctx context.Context) (poll.Observation, error) {
		inst, err := m.getInstance(ctx, zn, name)
		if errors.Is(err, vm.ErrNotFound) {
			return poll.Observation{Status: instanceAbsent}, nil
		}
		if err != nil {
			return poll.Observation{}, err
		}
		return poll.Observation{Status: inst.Status}, nil
	})
	if !gone {
		return fmt.Errorf("instance %s still present after delete", name)
	}
	return nil
}

// ListInstances returns all instances in the project across zones.
func (m *Manager) ListInstances(ctx context.Context) ([]vm.Instance, error) {
	url := fmt.Sprintf("%s/projects/%s/aggregated/instances", m.baseURL, m.project)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, m.parseError(resp)
	}

	var listResp aggregatedListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var instances []vm.Instance
	for zonePath, scopedList := range listResp.Items {
		// zonePath is like "zones/us-central1-a"
		zn := strings.TrimPrefix(zonePath, "zones/")
		for _, inst := range scopedList.Instances {
			instances = append(instances, toInstance(inst, zn))
		}
	}

	// Aggregated results arrive keyed by zone; order them for stable output.
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Name < instances[j].Name
	})
	return instances, nil
}

// InstanceExists reports whether the named instance exists in any zone.
func (m *Manager) InstanceExists(ctx context.Context, name string) (bool, error) {
	_, err := m.FindInstanceZone(ctx, name)
	if errors.Is(err, vm.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindInstanceZone locates the zone hosting the named instance. The zone is
// looked up fresh every time: the instance may have been created by an
// earlier run in whichever zone had capacity then.
func (m *Manager) FindInstanceZone(ctx context.Context, name string) (string, error) {
	instances, err := m.ListInstances(ctx)
	if err != nil {
		return "", err
	}
	for _, inst := range instances {
		if inst.Name == name {
			return inst.Zone, nil
		}
	}
	return "", fmt.Errorf("instance %s: %w", name, vm.ErrNotFound)
}

// ExternalIP returns the public address of the instance.
func (m *Manager) ExternalIP(ctx context.Context, zn, name string) (string, error) {
	inst, err := m.getInstance(ctx, zn, name)
	if err != nil {
		return "", err
	}
	for _, iface := range inst.NetworkInterfaces {
		for _, ac := range iface.AccessConfigs {
			if ac.NatIP != "" {
				return ac.NatIP, nil
			}
		}
	}
	return "", fmt.Errorf("instance %s has no external address", name)
}

func (m *Manager) insertInstance(ctx context.Context, name, zn string) (operationData, error) {
	instanceReq := m.buildInstanceRequest(name, zn)

	body, err := json.Marshal(instanceReq)
	if err != nil {
		return operationData{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/zones/%s/instances?requestId=%s", m.baseURL, m.project, zn, uuid.NewString())
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return operationData{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return operationData{}, fmt.Errorf("failed to insert instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return operationData{}, m.parseError(resp)
	}

	var op operationData
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return operationData{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return op, nil
}

func (m *Manager) buildInstanceRequest(name, zn string) instanceRequest {
	instance := instanceRequest{
		Name:        name,
		MachineType: fmt.Sprintf("zones/%s/machineTypes/%s", zn, m.cfg.MachineType),
		Disks: []diskConfig{
			{
				Boot:       true,
				AutoDelete: true,
				InitializeParams: &diskInitParams{
					SourceImage: fmt.Sprintf("projects/%s/global/images/family/%s", m.cfg.ImageProject, m.cfg.ImageFamily),
					DiskSizeGB:  m.cfg.DiskSizeGB,
				},
			},
		},
		NetworkInterfaces: []networkInterface{
			{
				Network: "global/networks/default",
				AccessConfigs: []accessConfig{
					{
						Type: "ONE_TO_ONE_NAT",
						Name: "External NAT",
					},
				},
			},
		},
		Tags: &tags{Items: []string{m.cfg.NetworkTag}},
		GuestAccelerators: []accelerator{
			{
				AcceleratorType:  fmt.Sprintf("zones/%s/acceleratorTypes/%s", zn, m.cfg.Accelerator),
				AcceleratorCount: 1,
			},
		},
		Metadata: &metadata{
			Items: []metadataItem{
				{
					Key:   "install-nvidia-driver",
					Value: "true",
				},
			},
		},
		// GPU instances cannot live-migrate.
		Scheduling: &scheduling{
			OnHostMaintenance: "TERMINATE",
			AutomaticRestart:  m.cfg.RestartOnFailure,
		},
	}

	// GCP expects SSH keys in metadata format: "username:ssh-rsa AAAA..."
	if m.cfg.SSHUser != "" && m.cfg.SSHPublicKey != "" {
		instance.Metadata.Items = append(instance.Metadata.Items, metadataItem{
			Key:   "ssh-keys",
			Value: fmt.Sprintf("%s:%s", m.cfg.SSHUser, m.cfg.SSHPublicKey),
		})
	}

	return instance
}

// instanceAction posts a verb like "start" or "stop" to the instance and
// waits for the resulting operation to finish.
func (m *Manager) instanceAction(ctx context.Context, zn, name, action string) error {
	url := fmt.Sprintf("%s/projects/%s/zones/%s/instances/%s/%s?requestId=%s", m.baseURL, m.project, zn, name, action, uuid.NewString())
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to %s instance: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return m.parseError(resp)
	}

	var op operationData
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if finalOp, done := m.waitOperation(ctx, zn, op.Name); !done {
		return operationFailure(finalOp, fmt.Sprintf("%s operation for %s", action, name))
	}
	return nil
}

// waitOperation polls a zone operation until DONE and returns the last
// observed form of it. done reports completion without an error payload.
func (m *Manager) waitOperation(ctx context.Context, zn, opName string) (operationData, bool) {
	var lastOp operationData
	done := poll.WaitForState(ctx, poll.Config{
		Name:         fmt.Sprintf("operation %s", opName),
		Accept:       []string{"DONE"},
		Transitional: []string{"PENDING", "RUNNING"},
		Timeout:      m.cfg.OperationTimeout,
		Interval:     m.cfg.PollInterval,
		Clock:        m.clk,
		Logger:       m.logger,
	}, func(ctx context.Context) (poll.Observation, error) {
		cur, err := m.getZoneOperation(ctx, zn, opName)
		if err != nil {
			return poll.Observation{}, err
		}
		lastOp = cur
		return poll.Observation{Status: cur.Status, Err: cur.errOrNil()}, nil
	})
	return lastOp, done
}

func (m *Manager) waitInstanceStatus(ctx context.Context, zn, name, accept string, transitional, failed []string) bool {
	return poll.WaitForState(ctx, poll.Config{
		Name:         fmt.Sprintf("instance %s", name),
		Accept:       []string{accept},
		Transitional: transitional,
		Failed:       failed,
		Timeout:      m.cfg.InstanceTimeout,
		Interval:     m.cfg.PollInterval,
		Clock:        m.clk,
		Logger:       m.logger,
	}, func(ctx context.Context) (poll.Observation, error) {
		inst, err := m.getInstance(ctx, zn, name)
		if err != nil {
			return poll.Observation{}, err
		}
		return poll.Observation{Status: inst.Status}, nil
	})
}

func (m *Manager) getInstance(ctx context.Context, zn, name string) (*instanceData, error) {
	url := fmt.Sprintf("%s/projects/%s/zones/%s/instances/%s", m.baseURL, m.project, zn, name)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("instance %s in %s: %w", name, zn, vm.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, m.parseError(resp)
	}

	var inst instanceData
	if err := json.NewDecoder(resp.Body).Decode(&inst); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &inst, nil
}

func (m *Manager) getZoneOperation(ctx context.Context, zn, opName string) (operationData, error) {
	url := fmt.Sprintf("%s/projects/%s/zones/%s/operations/%s", m.baseURL, m.project, zn, opName)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return operationData{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return operationData{}, fmt.Errorf("failed to get operation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return operationData{}, m.parseError(resp)
	}

	var op operationData
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return operationData{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return op, nil
}

// zonesWithAccelerator returns the zones offering the configured GPU type.
func (m *Manager) zonesWithAccelerator(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/projects/%s/aggregated/acceleratorTypes", m.baseURL, m.project)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to list accelerator types: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, m.parseError(resp)
	}

	var listResp acceleratorAggregatedListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var zones []string
	for zonePath, scoped := range listResp.Items {
		zn := strings.TrimPrefix(zonePath, "zones/")
		for _, acc := range scoped.AcceleratorTypes {
			if acc.Name == m.cfg.Accelerator {
				zones = append(zones, zn)
				break
			}
		}
	}
	return zones, nil
}

func (m *Manager) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return fmt.Errorf("GCE API error: %s (code: %d)", errResp.Error.Message, errResp.Error.Code)
	}
	return fmt.Errorf("GCE API error: status %d, body: %s", resp.StatusCode, string(body))
}

// operationFailure converts the final form of an unfinished operation into
// an error, distinguishing an error payload from a plain timeout.
func operationFailure(op operationData, what string) error {
	if opErr := op.errOrNil(); opErr != nil {
		return fmt.Errorf("%s failed: %w", what, opErr)
	}
	return fmt.Errorf("%s did not finish in time", what)
}

func toInstance(inst instanceData, zn string) vm.Instance {
	out := vm.Instance{
		Name:        inst.Name,
		Zone:        zn,
		Status:      inst.Status,
		MachineType: lastPathSegment(inst.MachineType),
	}
	for _, iface := range inst.NetworkInterfaces {
		if out.InternalIP == "" {
			out.InternalIP = iface.NetworkIP
		}
		for _, ac := range iface.AccessConfigs {
			if ac.NatIP != "" {
				out.ExternalIP = ac.NatIP
				break
			}
		}
		if out.ExternalIP != "" {
			break
		}
	}
	return out
}

// Helper functions

func lastPathSegment(fullPath string) string {
	parts := strings.Split(fullPath, "/")
	return parts[len(parts)-1]
}

// API types

type instanceRequest struct {
	Name              string             `json:"name"`
	MachineType       string             `json:"machineType"`
	Disks             []diskConfig       `json:"disks"`
	NetworkInterfaces []networkInterface `json:"networkInterfaces"`
	Tags              *tags              `json:"tags,omitempty"`
	Metadata          *metadata          `json:"metadata,omitempty"`
	Scheduling        *scheduling        `json:"scheduling,omitempty"`
	GuestAccelerators []accelerator      `json:"guestAccelerators,omitempty"`
}

type diskConfig struct {
	Boot             bool            `json:"boot"`
	AutoDelete       bool            `json:"autoDelete"`
	InitializeParams *diskInitParams `json:"initializeParams,omitempty"`
}

type diskInitParams struct {
	SourceImage string `json:"sourceImage"`
	DiskSizeGB  int    `json:"diskSizeGb"`
}

type networkInterface struct {
	Network       string         `json:"network"`
	Subnetwork    string         `json:"subnetwork,omitempty"`
	AccessConfigs []accessConfig `json:"accessConfigs,omitempty"`
	NetworkIP     string         `json:"networkIP,omitempty"`
}

type accessConfig struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	NatIP string `json:"natIP,omitempty"`
}

type tags struct {
	Items []string `json:"items"`
}

type metadata struct {
	Items []metadataItem `json:"items"`
}

type metadataItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type scheduling struct {
	OnHostMaintenance string `json:"onHostMaintenance"`
	AutomaticRestart  bool   `json:"automaticRestart"`
}

type accelerator struct {
	AcceleratorType  string `json:"acceleratorType"`
	AcceleratorCount int    `json:"acceleratorCount"`
}

type operationData struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	TargetLink string          `json:"targetLink"`
	Error      *operationError `json:"error,omitempty"`
}

type operationError struct {
	Errors []operationErrorItem `json:"errors"`
}

type operationErrorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errOrNil converts the operation's error payload to a Go error.
func (o operationData) errOrNil() error {
	if o.Error == nil || len(o.Error.Errors) == 0 {
		return nil
	}
	parts := make([]string, 0, len(o.Error.Errors))
	for _, e := range o.Error.Errors {
		if e.Message != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", e.Code, e.Message))
		} else {
			parts = append(parts, e.Code)
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

// hasErrorCode reports whether the error payload carries any of the codes.
func (o operationData) hasErrorCode(codes ...string) bool {
	if o.Error == nil {
		return false
	}
	for _, e := range o.Error.Errors {
		if slices.Contains(codes, e.Code) {
			return true
		}
	}
	return false
}

type aggregatedListResponse struct {
	Items map[string]instancesScopedList `json:"items"`
}

type instancesScopedList struct {
	Instances []instanceData `json:"instances"`
}

type instanceData struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Zone              string             `json:"zone"`
	MachineType       string             `json:"machineType"`
	Status            string             `json:"status"`
	NetworkInterfaces []networkInterface `json:"networkInterfaces"`
	GuestAccelerators []accelerator      `json:"guestAccelerators"`
}

type acceleratorAggregatedListResponse struct {
	Items map[string]acceleratorScopedList `json:"items"`
}

type acceleratorScopedList struct {
	AcceleratorTypes []acceleratorType `json:"acceleratorTypes"`
}

type acceleratorType struct {
	Name string `json:"name"`
	Zone string `json:"zone"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
