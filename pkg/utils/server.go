package utils

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

const nodeIDFile = ".node_id"

// NodeID returns a stable identifier for this process, used as lock owner and
// as origin tag on relayed realtime events. Order: override, persisted file,
// sanitised hostname, random value (persisted for the next boot).
func NodeID(override, storagePath string) string {
	if override != "" {
		return override
	}

	idFile := filepath.Join(storagePath, nodeIDFile)
	if data, err := os.ReadFile(idFile); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	if host, err := os.Hostname(); err == nil && host != "localhost" {
		if clean := sanitizeKey(host); clean != "" {
			return "scb-" + clean
		}
	}

	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	id := "scb-" + hex.EncodeToString(buf)

	_ = os.MkdirAll(storagePath, 0755)
	_ = os.WriteFile(idFile, []byte(id), 0644)
	return id
}

func sanitizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, s)
}
