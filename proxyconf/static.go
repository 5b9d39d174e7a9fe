package proxyconf

import "context"

// StaticSource serves fixed settings, for configurations where the proxy
// is written in the config file instead of discovered from the system.
type StaticSource struct {
	Fixed Settings
}

func (s StaticSource) CopySettings(ctx context.Context) (Settings, error) {
	return s.Fixed, nil
}
