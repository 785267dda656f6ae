package gateway

import (
	"log/slog"

	"github.com/zeroauth/authgate/pkg/keyset"
	"github.com/zeroauth/authgate/pkg/nonce"
	"github.com/zeroauth/authgate/pkg/provider"
)

type Option func(*Server) error

func WithClientRegistry(registry *ClientRegistry) Option {
	return func(s *Server) error {
		s.registry = registry
		for _, client := range registry.Clients {
			slog.Info("Using client", "id", client.ID, "return_prefixes", client.AllowedReturnPrefixes)
		}
		return nil
	}
}

func WithClientRegistryFromFile(path string) Option {
	return func(s *Server) error {
		registry, err := LoadClientRegistry(path)
		if err != nil {
			return err
		}
		return WithClientRegistry(registry)(s)
	}
}

func WithAdapter(adapter provider.Adapter) Option {
	return func(s *Server) error {
		s.adapters[adapter.Name()] = adapter
		slog.Info("Using identity provider", "provider", adapter.Name())
		return nil
	}
}

func WithKeyManager(keys *keyset.Manager) Option {
	return func(s *Server) error {
		s.keys = keys
		return nil
	}
}

func WithNonceService(nonces nonce.Service) Option {
	return func(s *Server) error {
		s.nonces = nonces
		return nil
	}
}
