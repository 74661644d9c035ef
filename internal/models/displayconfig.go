// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package models

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// DefaultScheduleKey names the fallback schedule every display config has.
// It participates in no time-based ordering and never carries an end time.
const DefaultScheduleKey = "default"

// MediaType values for a schedule entry.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// ScheduleEntry is one segment of a display's content rotation.
type ScheduleEntry struct {
	MediaType string `json:"mediaType"`

	// EndTime is absent for the default entry.
	EndTime string `json:"endTime,omitempty"`

	// Paths lists media filenames in presentation order. Filenames are
	// unique within a schedule.
	Paths []string `json:"paths"`
}

// DisplayConfig is the per-kiosk configuration document. On the wire and on
// disk each schedule entry sits at the top level of the JSON object, keyed by
// its schedule key, next to the presentation settings:
//
//	{
//	  "transitionStyle": "slide",
//	  "transitionDuration": 1,
//	  "imageFit": "cover",
//	  "imageInterval": 5,
//	  "scheduleKeys": ["default", "17:30"],
//	  "default": {"mediaType": "image", "paths": []},
//	  "17:30": {"mediaType": "video", "endTime": "19:00", "paths": ["a.mp4"]}
//	}
type DisplayConfig struct {
	TransitionStyle    string
	TransitionDuration int
	ImageFit           string
	ImageInterval      int

	// ScheduleKeys holds the default key first, then timed keys sorted
	// ascending. Every key has an entry in Schedules.
	ScheduleKeys []string

	Schedules map[string]ScheduleEntry
}

// DefaultDisplayConfig returns the document materialized for a kiosk that has
// no config file yet.
func DefaultDisplayConfig() *DisplayConfig {
	return &DisplayConfig{
		TransitionStyle:    "slide",
		TransitionDuration: 1,
		ImageFit:           "cover",
		ImageInterval:      5,
		ScheduleKeys:       []string{DefaultScheduleKey},
		Schedules: map[string]ScheduleEntry{
			DefaultScheduleKey: {MediaType: MediaTypeImage, Paths: []string{}},
		},
	}
}

// Schedule returns the entry for the given key.
func (c *DisplayConfig) Schedule(key string) (ScheduleEntry, bool) {
	e, ok := c.Schedules[key]
	return e, ok
}

// SetSchedule stores the entry and registers the key, keeping ScheduleKeys
// ordered. The default entry never carries an end time.
func (c *DisplayConfig) SetSchedule(key string, entry ScheduleEntry) {
	if key == DefaultScheduleKey {
		entry.EndTime = ""
	}
	if entry.Paths == nil {
		entry.Paths = []string{}
	}
	if c.Schedules == nil {
		c.Schedules = make(map[string]ScheduleEntry)
	}
	if _, ok := c.Schedules[key]; !ok {
		c.ScheduleKeys = append(c.ScheduleKeys, key)
	}
	c.Schedules[key] = entry
	c.sortScheduleKeys()
}

// RemoveSchedule drops the key and its entry. Removing the default key or a
// key that does not exist is a no-op; it reports whether anything changed.
func (c *DisplayConfig) RemoveSchedule(key string) bool {
	if key == DefaultScheduleKey {
		return false
	}
	if _, ok := c.Schedules[key]; !ok {
		return false
	}
	delete(c.Schedules, key)
	keys := c.ScheduleKeys[:0]
	for _, k := range c.ScheduleKeys {
		if k != key {
			keys = append(keys, k)
		}
	}
	c.ScheduleKeys = keys
	return true
}

// sortScheduleKeys restores the ordering invariant: the default key first,
// timed keys sorted ascending.
func (c *DisplayConfig) sortScheduleKeys() {
	keys := make([]string, 0, len(c.ScheduleKeys))
	hasDefault := false
	for _, k := range c.ScheduleKeys {
		if k == DefaultScheduleKey {
			hasDefault = true
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if hasDefault {
		keys = append([]string{DefaultScheduleKey}, keys...)
	}
	c.ScheduleKeys = keys
}

// MarshalJSON writes the document with schedule entries hoisted to the top
// level, in ScheduleKeys order, so output is deterministic.
func (c *DisplayConfig) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, v interface{}) error {
		kb, err := json.Marshal(key)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	if err := writeField("transitionStyle", c.TransitionStyle); err != nil {
		return nil, err
	}
	if err := writeField("transitionDuration", c.TransitionDuration); err != nil {
		return nil, err
	}
	if err := writeField("imageFit", c.ImageFit); err != nil {
		return nil, err
	}
	if err := writeField("imageInterval", c.ImageInterval); err != nil {
		return nil, err
	}
	if err := writeField("scheduleKeys", c.ScheduleKeys); err != nil {
		return nil, err
	}
	for _, key := range c.ScheduleKeys {
		entry := c.Schedules[key]
		if entry.Paths == nil {
			entry.Paths = []string{}
		}
		if err := writeField(key, entry); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the top-level-schedule layout back. A document missing
// scheduleKeys, or missing the entry for a listed key, is malformed; callers
// treat that the same as a missing file.
func (c *DisplayConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	field := func(key string, dst interface{}) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(v, dst)
	}

	if err := field("transitionStyle", &c.TransitionStyle); err != nil {
		return err
	}
	if err := field("transitionDuration", &c.TransitionDuration); err != nil {
		return err
	}
	if err := field("imageFit", &c.ImageFit); err != nil {
		return err
	}
	if err := field("imageInterval", &c.ImageInterval); err != nil {
		return err
	}

	keysRaw, ok := raw["scheduleKeys"]
	if !ok {
		return fmt.Errorf("display config: missing scheduleKeys")
	}
	if err := json.Unmarshal(keysRaw, &c.ScheduleKeys); err != nil {
		return err
	}

	c.Schedules = make(map[string]ScheduleEntry, len(c.ScheduleKeys))
	for _, key := range c.ScheduleKeys {
		entryRaw, ok := raw[key]
		if !ok {
			return fmt.Errorf("display config: schedule key %q has no entry", key)
		}
		var entry ScheduleEntry
		if err := json.Unmarshal(entryRaw, &entry); err != nil {
			return err
		}
		if entry.Paths == nil {
			entry.Paths = []string{}
		}
		c.Schedules[key] = entry
	}

	c.sortScheduleKeys()
	return nil
}
