// Package vm defines the cloud-agnostic surface for managing the virtual
// machine that hosts the inference server.
package vm

import (
	"context"
	"errors"
)

// ErrNotFound indicates the named instance does not exist.
var ErrNotFound = errors.New("instance not found")

// ErrNoZoneAvailable indicates every candidate zone refused the instance.
var ErrNoZoneAvailable = errors.New("no zone with available capacity")

// Instance describes a virtual machine.
type Instance struct {
	Name        string
	Zone        string
	Status      string
	MachineType string
	ExternalIP  string
	InternalIP  string
}

// Manager provisions and controls virtual machines.
type Manager interface {
	// CreateInstance provisions a new instance under the given name, trying
	// candidate zones in priority order until one accepts it.
	CreateInstance(ctx context.Context, name string) error

	// StartInstance starts a stopped instance and waits for it to run.
	// Returns ErrNotFound when the instance does not exist.
	StartInstance(ctx context.Context, name string) error

	// StopInstance stops a running instance and waits for it to halt.
	// Returns ErrNotFound when the instance does not exist.
	StopInstance(ctx context.Context, name string) error

	// DeleteInstance deletes an existing instance and waits until it is
	// gone. Returns ErrNotFound when the instance does not exist; nothing
	// is mutated in that case.
	DeleteInstance(ctx context.Context, name string) error

	// ListInstances returns all instances in the project.
	ListInstances(ctx context.Context) ([]Instance, error)

	// InstanceExists reports whether the named instance exists in any zone.
	InstanceExists(ctx context.Context, name string) (bool, error)

	// FindInstanceZone returns the zone hosting the named instance, or
	// ErrNotFound.
	FindInstanceZone(ctx context.Context, name string) (string, error)

	// ExternalIP returns the public address of an instance.
	ExternalIP(ctx context.Context, zone, name string) (string, error)

	// EnsureFirewallRule creates or updates the firewall rule that admits
	// the given source address to the inference port.
	EnsureFirewallRule(ctx context.Context, sourceIP string) error
}
