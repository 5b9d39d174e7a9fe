package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type CredentialConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ProxyConfig struct {
	HTTPEnable  bool   `json:"http_enable"`
	HTTPHost    string `json:"http_host"`
	HTTPPort    int    `json:"http_port"`
	HTTPSEnable bool   `json:"https_enable"`
	HTTPSHost   string `json:"https_host"`
	HTTPSPort   int    `json:"https_port"`
}

type Config struct {
	// ServerURL is the WebDAV collection to mount, e.g.
	// https://dav.example.com/files
	ServerURL string           `json:"server_url"`
	LogInfo   logger.LogConfig `json:"log_info"`
	// RequestThreads dimensions the stream pool; one extra slot is always
	// reserved for the background download thread.
	RequestThreads int `json:"request_threads"`
	// LockTimeoutSecs is the Timeout value requested on LOCK.
	LockTimeoutSecs int `json:"lock_timeout_secs"`
	// FirstReadLen overrides how many bytes of a GET are read before the
	// download is handed to the background queue; 0 means the page size.
	FirstReadLen int `json:"first_read_len"`
	// ValidWindowSecs is how long a validated cache copy is trusted.
	ValidWindowSecs int               `json:"valid_window_secs"`
	UserAgent       string            `json:"user_agent"`
	Mirrored        bool              `json:"mirrored"`
	SourceID        string            `json:"source_id"`
	SuppressUI      bool              `json:"suppress_ui"`
	TrustHelper     string            `json:"trust_helper"`
	ServerAuth      *CredentialConfig `json:"server_auth"`
	ProxyAuth       *CredentialConfig `json:"proxy_auth"`
	Proxy           ProxyConfig       `json:"proxy"`
	EnableAttrCache bool              `json:"enable_attr_cache"`
}

func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}
	c := &Config{
		RequestThreads:  5,
		LockTimeoutSecs: 600,
		ValidWindowSecs: 60,
		EnableAttrCache: true,
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode json failed, err:%w", err)
	}
	if len(c.ServerURL) == 0 {
		return nil, fmt.Errorf("server_url is required")
	}
	return c, nil
}
