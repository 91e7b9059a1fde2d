package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

// ErrBeaconTooLarge is returned by Edit and Set when the profile would not
// fit in one radio frame. The stored profile is left unchanged.
var ErrBeaconTooLarge = errors.New("profile does not fit in one beacon")

// ProfileStore owns the local profile. It is loaded once and written back
// in full on every edit.
type ProfileStore struct {
	mu        sync.RWMutex
	profile   Profile
	path      string
	countries []string
	id        DeviceID
}

// LoadProfileStore reads path, falling back to DefaultProfile. Fields missing
// from the file keep their defaults; a file that fails to decode is ignored
// as a whole. id is the sender id beacons are sized against.
func LoadProfileStore(path string, countries []string, id DeviceID) *ProfileStore {
	ps := &ProfileStore{profile: DefaultProfile(), path: path, countries: countries, id: id}

	loaded := DefaultProfile()
	if loadJSON(path, &loaded) {
		ps.profile = loaded
	}
	if err := ps.checkSize(ps.profile); err != nil {
		log.Printf("Warning: saved profile cannot be broadcast: %v", err)
	}
	return ps
}

func (ps *ProfileStore) Get() Profile {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.profile
}

// Edit replaces every field with p and persists the result. The profile in
// memory is updated even if the write fails.
func (ps *ProfileStore) Edit(p Profile) error {
	p = ps.normalize(p)
	if err := ps.checkSize(p); err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.profile = p
	return saveJSON(ps.path, ps.profile)
}

// Set changes a single field by its JSON name.
func (ps *ProfileStore) Set(field, value string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	p := ps.profile
	switch field {
	case "name":
		p.Name = value
	case "country":
		p.Country = value
	case "favorite":
		p.Favorite = value
	case "future_os", "os":
		p.FutureOS = value
	case "message":
		p.Message = value
	default:
		return &FieldError{Field: field}
	}
	p = ps.normalize(p)
	if err := ps.checkSize(p); err != nil {
		return err
	}
	ps.profile = p
	return saveJSON(ps.path, ps.profile)
}

func (ps *ProfileStore) checkSize(p Profile) error {
	data, err := EncodePacket(p, ps.id)
	if err != nil {
		return err
	}
	if len(data) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrBeaconTooLarge, len(data), maxFrameSize)
	}
	return nil
}

func (ps *ProfileStore) normalize(p Profile) Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Country = strings.TrimSpace(p.Country)
	p.Favorite = strings.TrimSpace(p.Favorite)
	p.FutureOS = strings.TrimSpace(p.FutureOS)
	p.Message = strings.TrimSpace(p.Message)

	if c, ok := CanonicalCountry(ps.countries, p.Country); ok {
		p.Country = c
	}
	if r := []rune(p.Message); len(r) > MaxMessageLen {
		p.Message = string(r[:MaxMessageLen])
	}
	return p
}

// FieldError reports an unknown profile field.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return "unknown profile field " + e.Field + " (name, country, favorite, future_os, message)"
}
