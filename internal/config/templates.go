package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "daemon", "onebyted":
		return daemonTemplate, nil
	case "client", "onebytectl":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const daemonTemplate = `name = "onebyte"
listen_addr = "127.0.0.1:7600"
admin_addr = "127.0.0.1:7601"
admin_token = ""
cors_origins = ["http://localhost:3000"]
log_level = "info"
max_message_bytes = 4194304
memory_limit = 0
max_payload_bytes = 8388608
read_timeout = "0s"
write_timeout = "15s"
`

const clientTemplate = `addr = "127.0.0.1:7600"
dial_timeout = "5s"
max_attempts = 5
# keep in step with the daemon's max_payload_bytes
max_payload_bytes = 8388608
`
