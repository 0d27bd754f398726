// Package ollama installs and talks to the Ollama inference server.
package ollama

import (
	"fmt"

	"al.essio.dev/pkg/shellescape"
)

// DefaultPort is the port Ollama listens on.
const DefaultPort = 11434

// SetupCommands returns the shell commands that turn a fresh Ubuntu GPU
// image into a reachable Ollama server with the model pulled. Order matters:
// the systemd unit exists only after the install script ran, and OLLAMA_HOST
// must be in place before the restart for the server to bind beyond
// loopback.
func SetupCommands(model string) []string {
	return []string{
		"sudo DEBIAN_FRONTEND=noninteractive apt-get update -y && sudo DEBIAN_FRONTEND=noninteractive apt-get upgrade -yq",
		"curl https://ollama.com/install.sh | sh",
		`sudo sed -i '/^Environment/ i Environment="OLLAMA_HOST=0.0.0.0"' /etc/systemd/system/ollama.service`,
		"sudo systemctl daemon-reload",
		"sudo systemctl restart ollama",
		"ollama --version",
		fmt.Sprintf("ollama pull %s", shellescape.Quote(model)),
	}
}
