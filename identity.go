package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const deviceIDFile = "device_id"

// DeviceID identifies this device on the channel. It is stable across
// restarts and used to ignore our own beacons.
type DeviceID string

// LoadDeviceID derives the id from the first hardware address. Hosts without
// one get a random id that is persisted in dir.
func LoadDeviceID(dir string) (DeviceID, error) {
	if id, ok := hardwareID(); ok {
		return id, nil
	}
	return persistedID(filepath.Join(dir, deviceIDFile))
}

func hardwareID() (DeviceID, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return DeviceID(hex.EncodeToString(iface.HardwareAddr)), true
	}
	return "", false
}

func persistedID(path string) (DeviceID, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return DeviceID(id), nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := os.WriteFile(path, []byte(id+"\n"), 0644); err != nil {
		return "", fmt.Errorf("save device id: %w", err)
	}
	return DeviceID(id), nil
}
