package gateway

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClientRegistry resolves a client application id to its allowed
// return-URL prefixes. Loaded once from YAML, read-only afterwards.
type ClientRegistry struct {
	Clients []*ClientApplication `yaml:"clients"`
}

type ClientApplication struct {
	ID                    string   `yaml:"id"`
	AllowedReturnPrefixes []string `yaml:"allowed_return_prefixes"`
}

func LoadClientRegistry(path string) (*ClientRegistry, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients file '%s': %w", path, err)
	}
	var registry ClientRegistry
	err = yaml.Unmarshal(yamlData, &registry)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal clients file '%s': %w", path, err)
	}
	return &registry, nil
}

func (r *ClientRegistry) AllowedClient(clientID string) bool {
	for _, client := range r.Clients {
		if client.ID == clientID {
			return true
		}
	}
	return false
}

func (r *ClientRegistry) AllowedReturnURL(clientID, returnURL string) bool {
	for _, client := range r.Clients {
		if client.ID == clientID {
			for _, prefix := range client.AllowedReturnPrefixes {
				if strings.HasPrefix(returnURL, prefix) {
					return true
				}
			}
		}
	}
	return false
}
