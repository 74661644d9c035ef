// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package configstore owns the per-kiosk display configuration documents and
// their media directories. Every mutation is a read-modify-write of the whole
// document under a per-kiosk lock, written through a temp file and atomic
// rename so readers never observe a partial write. A missing or corrupt
// document materializes defaults instead of failing.
package configstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/szbani/kioskfleet/internal/logging"
	"github.com/szbani/kioskfleet/internal/models"
)

// configFileName is the document file inside each kiosk directory.
const configFileName = "config.json"

// Store manages display config documents under a media root. Layout:
//
//	<root>/displays/<kiosk>/config.json
//	<root>/displays/<kiosk>/<scheduleDir>/<media files>
//
// Schedule directory names replace ":" with "_" so timed keys stay valid
// path segments on every platform.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a store rooted at the given media directory.
func New(root string) *Store {
	return &Store{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}
}

// kioskLock returns the mutex serializing mutations for one kiosk name.
// Mutations for different kiosks proceed independently.
func (s *Store) kioskLock(kiosk string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[kiosk]
	if !ok {
		l = &sync.Mutex{}
		s.locks[kiosk] = l
	}
	return l
}

// KioskDir returns the directory holding a kiosk's document and media.
func (s *Store) KioskDir(kiosk string) string {
	return filepath.Join(s.root, "displays", filepath.Base(kiosk))
}

// scheduleKey maps a wire changeTime to a schedule key. An empty changeTime
// addresses the default schedule.
func scheduleKey(changeTime string) string {
	if changeTime == "" {
		return models.DefaultScheduleKey
	}
	return changeTime
}

// scheduleDirName maps a schedule key to its on-disk directory name.
func scheduleDirName(key string) string {
	return strings.ReplaceAll(key, ":", "_")
}

// ScheduleDir returns the media directory for a schedule key of a kiosk.
// Default-schedule media lives directly in the kiosk directory, next to the
// document; each timed key gets its own subdirectory.
func (s *Store) ScheduleDir(kiosk, changeTime string) string {
	key := scheduleKey(changeTime)
	if key == models.DefaultScheduleKey {
		return s.KioskDir(kiosk)
	}
	return filepath.Join(s.KioskDir(kiosk), scheduleDirName(key))
}

// MediaFilePath resolves the destination path for an uploaded file, creating
// the schedule directory if needed. The file name is reduced to its base so
// peers cannot escape the media tree.
func (s *Store) MediaFilePath(kiosk, changeTime, fileName string) (string, error) {
	dir := s.ScheduleDir(kiosk, changeTime)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create schedule dir: %w", err)
	}
	return filepath.Join(dir, filepath.Base(fileName)), nil
}

// load reads the document without locking. Absent and corrupt files both
// yield the default document; corruption is logged, never propagated.
func (s *Store) load(kiosk string) *models.DisplayConfig {
	path := filepath.Join(s.KioskDir(kiosk), configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return models.DefaultDisplayConfig()
	}

	cfg := &models.DisplayConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		logging.Warn().
			Str("kiosk", kiosk).
			Err(err).
			Msg("display config unreadable, using defaults")
		return models.DefaultDisplayConfig()
	}
	return cfg
}

// save writes the document through a temp file and atomic rename.
func (s *Store) save(kiosk string, cfg *models.DisplayConfig) error {
	dir := s.KioskDir(kiosk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create kiosk dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal display config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, configFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, configFileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Load returns the current document for a kiosk, materializing defaults when
// no valid file exists.
func (s *Store) Load(kiosk string) *models.DisplayConfig {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()
	return s.load(kiosk)
}

// RawDocument returns the document serialized in its wire layout. The file is
// always written back first so a kiosk connecting before any admin mutation
// still gets a persisted default document.
func (s *Store) RawDocument(kiosk string) ([]byte, error) {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	cfg := s.load(kiosk)
	if err := s.save(kiosk, cfg); err != nil {
		return nil, err
	}
	return json.Marshal(cfg)
}

// PrepareSchedule readies a schedule key for an incoming file stream. When
// the media type changes, or the incoming type is video, previously stored
// files for that key are wiped first: video replaces, image accumulates.
func (s *Store) PrepareSchedule(kiosk, mediaType, changeTime string) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	key := scheduleKey(changeTime)
	cfg := s.load(kiosk)

	entry, ok := cfg.Schedule(key)
	wipe := !ok || entry.MediaType != mediaType || mediaType == models.MediaTypeVideo
	if wipe {
		if err := s.clearScheduleFiles(kiosk, changeTime); err != nil {
			return err
		}
		entry.Paths = []string{}
	}
	entry.MediaType = mediaType
	cfg.SetSchedule(key, entry)

	return s.save(kiosk, cfg)
}

// clearScheduleFiles deletes every stored media file for a schedule key.
func (s *Store) clearScheduleFiles(kiosk, changeTime string) error {
	dir := s.ScheduleDir(kiosk, changeTime)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schedule dir: %w", err)
	}
	for _, e := range entries {
		// The document shares the default schedule's directory.
		if e.IsDir() || e.Name() == configFileName {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove media file: %w", err)
		}
	}
	return nil
}

// ReconcilePaths folds the on-disk file listing of a schedule directory into
// the document's paths array. Files on disk but missing from the document are
// appended in name order; nothing is ever removed here.
func (s *Store) ReconcilePaths(kiosk, changeTime string) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	key := scheduleKey(changeTime)
	cfg := s.load(kiosk)
	entry, _ := cfg.Schedule(key)

	known := make(map[string]struct{}, len(entry.Paths))
	for _, p := range entry.Paths {
		known[strings.ToLower(p)] = struct{}{}
	}

	dirEntries, err := os.ReadDir(s.ScheduleDir(kiosk, changeTime))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read schedule dir: %w", err)
	}

	var added []string
	for _, e := range dirEntries {
		if e.IsDir() || e.Name() == configFileName {
			continue
		}
		if _, ok := known[strings.ToLower(e.Name())]; !ok {
			added = append(added, e.Name())
		}
	}
	sort.Strings(added)
	entry.Paths = append(entry.Paths, added...)

	cfg.SetSchedule(key, entry)
	return s.save(kiosk, cfg)
}

// SetOrder replaces the paths array for a schedule key with the given list
// verbatim. The caller is the source of truth for presentation order.
func (s *Store) SetOrder(kiosk, changeTime string, fileNames []string) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	key := scheduleKey(changeTime)
	cfg := s.load(kiosk)
	entry, _ := cfg.Schedule(key)

	if fileNames == nil {
		fileNames = []string{}
	}
	entry.Paths = fileNames

	cfg.SetSchedule(key, entry)
	return s.save(kiosk, cfg)
}

// DeleteMedia removes the named files from a schedule's paths array, matching
// case-insensitively, and deletes the backing files. Names absent from the
// document or from disk are tolerated silently.
func (s *Store) DeleteMedia(kiosk, changeTime string, fileNames []string) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	key := scheduleKey(changeTime)
	cfg := s.load(kiosk)
	entry, _ := cfg.Schedule(key)

	doomed := make(map[string]struct{}, len(fileNames))
	for _, name := range fileNames {
		doomed[strings.ToLower(filepath.Base(name))] = struct{}{}
	}

	kept := entry.Paths[:0]
	for _, p := range entry.Paths {
		if _, ok := doomed[strings.ToLower(p)]; ok {
			continue
		}
		kept = append(kept, p)
	}
	entry.Paths = kept

	dir := s.ScheduleDir(kiosk, changeTime)
	for _, name := range fileNames {
		base := filepath.Base(name)
		if base == configFileName {
			continue
		}
		err := os.Remove(filepath.Join(dir, base))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove media file: %w", err)
		}
	}

	cfg.SetSchedule(key, entry)
	return s.save(kiosk, cfg)
}

// AddSchedule inserts a new timed schedule key. An existing key keeps its
// stored media and only picks up the new end time.
func (s *Store) AddSchedule(kiosk, start, end string) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	cfg := s.load(kiosk)
	entry, ok := cfg.Schedule(start)
	if !ok {
		entry = models.ScheduleEntry{MediaType: models.MediaTypeImage, Paths: []string{}}
	}
	entry.EndTime = end

	cfg.SetSchedule(start, entry)
	return s.save(kiosk, cfg)
}

// EditSchedule renames a timed schedule key and updates its end time. The
// schedule's media directory moves with the key so stored files survive the
// rename. Editing an unknown key behaves like AddSchedule.
func (s *Store) EditSchedule(kiosk, changeTime, start, end string) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	oldKey := scheduleKey(changeTime)
	if oldKey == models.DefaultScheduleKey {
		return fmt.Errorf("default schedule cannot be renamed")
	}

	cfg := s.load(kiosk)
	entry, ok := cfg.Schedule(oldKey)
	if !ok {
		entry = models.ScheduleEntry{MediaType: models.MediaTypeImage, Paths: []string{}}
	}
	entry.EndTime = end

	if ok && oldKey != start {
		cfg.RemoveSchedule(oldKey)
		oldDir := s.ScheduleDir(kiosk, changeTime)
		newDir := s.ScheduleDir(kiosk, start)
		if err := os.Rename(oldDir, newDir); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("rename schedule dir: %w", err)
		}
	}

	cfg.SetSchedule(start, entry)
	return s.save(kiosk, cfg)
}

// DeleteSchedule removes a timed schedule key, its entry and its media
// directory. A missing key is a no-op success; the default key is protected.
func (s *Store) DeleteSchedule(kiosk, changeTime string) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	key := scheduleKey(changeTime)
	if key == models.DefaultScheduleKey {
		return fmt.Errorf("default schedule cannot be deleted")
	}

	cfg := s.load(kiosk)
	if !cfg.RemoveSchedule(key) {
		return nil
	}
	if err := os.RemoveAll(s.ScheduleDir(kiosk, changeTime)); err != nil {
		return fmt.Errorf("remove schedule dir: %w", err)
	}
	return s.save(kiosk, cfg)
}

// SetPresentation updates the presentation fields of the document.
func (s *Store) SetPresentation(kiosk, transitionStyle string, transitionDuration int, imageFit string, imageInterval int) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	cfg := s.load(kiosk)
	cfg.TransitionStyle = transitionStyle
	cfg.TransitionDuration = transitionDuration
	cfg.ImageFit = imageFit
	cfg.ImageInterval = imageInterval
	return s.save(kiosk, cfg)
}

// DeleteKiosk removes a kiosk's document and all of its media.
func (s *Store) DeleteKiosk(kiosk string) error {
	l := s.kioskLock(kiosk)
	l.Lock()
	defer l.Unlock()

	if err := os.RemoveAll(s.KioskDir(kiosk)); err != nil {
		return fmt.Errorf("remove kiosk dir: %w", err)
	}
	return nil
}
