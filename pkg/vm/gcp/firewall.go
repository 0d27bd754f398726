package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// EnsureFirewallRule creates or updates the ingress rule admitting sourceIP
// to the inference port. An existing rule is replaced rather than left
// alone, so the rule always reflects the caller's current address.
func (m *Manager) EnsureFirewallRule(ctx context.Context, sourceIP string) error {
	exists, err := m.firewallRuleExists(ctx)
	if err != nil {
		return fmt.Errorf("checking firewall rule %s: %w", m.cfg.FirewallRule, err)
	}

	rule := m.buildFirewallRule(sourceIP)
	body, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	method := "POST"
	url := fmt.Sprintf("%s/projects/%s/global/firewalls?requestId=%s", m.baseURL, m.project, uuid.NewString())
	if exists {
		method = "PUT"
		url = fmt.Sprintf("%s/projects/%s/global/firewalls/%s?requestId=%s", m.baseURL, m.project, m.cfg.FirewallRule, uuid.NewString())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to write firewall rule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return m.parseError(resp)
	}

	m.logger.Info("firewall rule written",
		slog.String("rule", m.cfg.FirewallRule),
		slog.String("source", rule.SourceRanges[0]),
		slog.Bool("updated", exists),
	)
	return nil
}

func (m *Manager) firewallRuleExists(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("%s/projects/%s/global/firewalls/%s", m.baseURL, m.project, m.cfg.FirewallRule)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("failed to get firewall rule: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, m.parseError(resp)
	}
}

// buildFirewallRule scopes the rule to the single caller address unless the
// address already carries a prefix length.
func (m *Manager) buildFirewallRule(sourceIP string) firewallRule {
	sourceRange := sourceIP
	if !strings.Contains(sourceRange, "/") {
		sourceRange += "/32"
	}

	return firewallRule{
		Name:      m.cfg.FirewallRule,
		Network:   "global/networks/default",
		Direction: "INGRESS",
		Allowed: []firewallAllowed{
			{
				IPProtocol: "tcp",
				Ports:      []string{strconv.Itoa(m.cfg.FirewallPort)},
			},
		},
		SourceRanges: []string{sourceRange},
		TargetTags:   []string{m.cfg.NetworkTag},
	}
}

type firewallRule struct {
	Name         string            `json:"name"`
	Network      string            `json:"network"`
	Direction    string            `json:"direction"`
	Allowed      []firewallAllowed `json:"allowed"`
	SourceRanges []string          `json:"sourceRanges"`
	TargetTags   []string          `json:"targetTags"`
}

type firewallAllowed struct {
	IPProtocol string   `json:"IPProtocol"`
	Ports      []string `json:"ports"`
}
