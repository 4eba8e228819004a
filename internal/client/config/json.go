package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avolkov-dev/filevault/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// are given as strings like "30s". Zero-valued fields leave the current
// Config value untouched.
type JsonConfig struct {
	ServerEndpointAddr string `json:"server_endpoint_addr"`
	KeystorePath       string `json:"keystore_path"`
	RequestTimeout     string `json:"request_timeout"`
}

// parseJson overlays cfg with values loaded from the JSON file named by
// the -c or -config flag. If neither flag is given, nothing happens.
// Read and parse errors panic; the CLI treats a broken config file as
// unrecoverable.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.KeystorePath != "" {
		cfg.KeystorePath = jc.KeystorePath
	}
	if jc.RequestTimeout != "" {
		d, err := time.ParseDuration(jc.RequestTimeout)
		if err != nil {
			panic(err)
		}
		cfg.RequestTimeout = d
	}
}
