// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package models

import (
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

func TestDefaultDisplayConfig(t *testing.T) {
	cfg := DefaultDisplayConfig()

	if cfg.TransitionStyle != "slide" || cfg.TransitionDuration != 1 {
		t.Errorf("unexpected transition defaults: %q/%d", cfg.TransitionStyle, cfg.TransitionDuration)
	}
	if cfg.ImageFit != "cover" || cfg.ImageInterval != 5 {
		t.Errorf("unexpected image defaults: %q/%d", cfg.ImageFit, cfg.ImageInterval)
	}
	if !reflect.DeepEqual(cfg.ScheduleKeys, []string{DefaultScheduleKey}) {
		t.Errorf("ScheduleKeys = %v, want [default]", cfg.ScheduleKeys)
	}
	entry, ok := cfg.Schedule(DefaultScheduleKey)
	if !ok {
		t.Fatal("default schedule entry missing")
	}
	if entry.MediaType != MediaTypeImage || len(entry.Paths) != 0 || entry.EndTime != "" {
		t.Errorf("unexpected default entry: %+v", entry)
	}
}

func TestDisplayConfigRoundTrip(t *testing.T) {
	cfg := DefaultDisplayConfig()
	cfg.SetSchedule("17:30", ScheduleEntry{
		MediaType: MediaTypeVideo,
		EndTime:   "19:00",
		Paths:     []string{"promo.mp4"},
	})
	cfg.SetSchedule("08:00", ScheduleEntry{
		MediaType: MediaTypeImage,
		EndTime:   "12:00",
		Paths:     []string{"a.jpg", "b.jpg"},
	})

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got DisplayConfig
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !reflect.DeepEqual(got.ScheduleKeys, cfg.ScheduleKeys) {
		t.Errorf("ScheduleKeys = %v, want %v", got.ScheduleKeys, cfg.ScheduleKeys)
	}
	for _, key := range cfg.ScheduleKeys {
		want := cfg.Schedules[key]
		have := got.Schedules[key]
		if !reflect.DeepEqual(have.Paths, want.Paths) {
			t.Errorf("schedule %q paths = %v, want %v", key, have.Paths, want.Paths)
		}
		if have.MediaType != want.MediaType || have.EndTime != want.EndTime {
			t.Errorf("schedule %q = %+v, want %+v", key, have, want)
		}
	}
}

func TestDisplayConfigKeyOrdering(t *testing.T) {
	cfg := DefaultDisplayConfig()
	cfg.SetSchedule("17:30", ScheduleEntry{MediaType: MediaTypeImage})
	cfg.SetSchedule("08:00", ScheduleEntry{MediaType: MediaTypeImage})
	cfg.SetSchedule("12:15", ScheduleEntry{MediaType: MediaTypeImage})

	want := []string{DefaultScheduleKey, "08:00", "12:15", "17:30"}
	if !reflect.DeepEqual(cfg.ScheduleKeys, want) {
		t.Errorf("ScheduleKeys = %v, want %v", cfg.ScheduleKeys, want)
	}
}

func TestDisplayConfigSetScheduleDefaultDropsEndTime(t *testing.T) {
	cfg := DefaultDisplayConfig()
	cfg.SetSchedule(DefaultScheduleKey, ScheduleEntry{MediaType: MediaTypeVideo, EndTime: "23:59"})

	entry, _ := cfg.Schedule(DefaultScheduleKey)
	if entry.EndTime != "" {
		t.Errorf("default entry end time = %q, want empty", entry.EndTime)
	}
	if entry.MediaType != MediaTypeVideo {
		t.Errorf("media type = %q, want video", entry.MediaType)
	}
}

func TestDisplayConfigRemoveSchedule(t *testing.T) {
	cfg := DefaultDisplayConfig()
	cfg.SetSchedule("17:30", ScheduleEntry{MediaType: MediaTypeImage})

	if !cfg.RemoveSchedule("17:30") {
		t.Error("RemoveSchedule returned false for existing key")
	}
	if _, ok := cfg.Schedule("17:30"); ok {
		t.Error("schedule entry still present after removal")
	}
	if cfg.RemoveSchedule("17:30") {
		t.Error("RemoveSchedule returned true for missing key")
	}
	if cfg.RemoveSchedule(DefaultScheduleKey) {
		t.Error("RemoveSchedule must never drop the default key")
	}
}

func TestDisplayConfigUnmarshalMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing scheduleKeys", `{"transitionStyle":"slide"}`},
		{"key without entry", `{"scheduleKeys":["default","09:00"],"default":{"mediaType":"image","paths":[]}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg DisplayConfig
			if err := json.Unmarshal([]byte(tc.data), &cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
