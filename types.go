package main

import (
	"math"
	"time"
)

const (
	appName = "LoRaPass"

	// beaconType tags our frames on the shared channel.
	beaconType    = "lorapass"
	beaconVersion = 1

	defaultTxInterval   = 5 * time.Second
	defaultRxPoll       = 200 * time.Millisecond
	defaultCooldown     = 10 * time.Second
	defaultHistoryLimit = 1000

	// MaxMessageLen keeps a beacon inside one LoRa payload.
	MaxMessageLen = 64
)

// Profile is the local user's identity as broadcast in every beacon.
type Profile struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Favorite string `json:"favorite"`
	FutureOS string `json:"future_os"`
	Message  string `json:"message"`
}

// DefaultProfile is used when no profile has been saved yet.
func DefaultProfile() Profile {
	return Profile{
		Name:     "Anon",
		Country:  "United States of America",
		Favorite: "Unknown Place",
		FutureOS: "LoRaOS",
		Message:  "Hello from LoRaPass!",
	}
}

// Packet is a decoded beacon. It is never persisted.
type Packet struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Favorite string `json:"favorite"`
	FutureOS string `json:"future_os"`
	Message  string `json:"message"`
	Version  int    `json:"version"`
}

// unixSeconds is the receipt time format stored in history.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Encounter is one accepted beacon from another device.
type Encounter struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Country  string  `json:"country"`
	Favorite string  `json:"favorite"`
	FutureOS string  `json:"future_os"`
	Message  string  `json:"message"`
	RSSI     int     `json:"rssi"`
	Time     float64 `json:"time"` // unix seconds, sub-second precision
}

// At returns the receipt time.
func (e Encounter) At() time.Time {
	sec, frac := math.Modf(e.Time)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Frame is one raw transmission heard on the radio.
type Frame struct {
	Data []byte
	RSSI int
}

// RSSI bands in dBm.
const (
	rssiClose  = -65
	rssiMedium = -80
	rssiFar    = -95
)

// Proximity names the band rssi falls in. Zero means the radio could not
// measure it.
func Proximity(rssi int) string {
	switch {
	case rssi == 0:
		return "unknown"
	case rssi >= rssiClose:
		return "close"
	case rssi >= rssiMedium:
		return "medium"
	case rssi >= rssiFar:
		return "far"
	default:
		return "edge"
	}
}
