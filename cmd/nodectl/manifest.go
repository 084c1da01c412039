package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/joshuapare/nodestore/store"
)

// mountEntry records one extra volume mounted onto the primary volume's
// trie, persisted alongside the primary file so mount/unmount survive
// across separate nodectl invocations.
type mountEntry struct {
	Prefix   string `json:"prefix"`
	Path     string `json:"path"`
	NodePath string `json:"node_path,omitempty"`
}

func manifestPath(primary string) string {
	return primary + ".mounts.json"
}

func loadManifest(primary string) ([]mountEntry, error) {
	b, err := os.ReadFile(manifestPath(primary))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []mountEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func saveManifest(primary string, entries []mountEntry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(manifestPath(primary), b, 0o644)
}

// openStorage opens the primary volume mounted at the trie root, plus
// every volume recorded in primary's mount manifest. Callers must close
// every returned volume when done.
func openStorage(primary string) (*store.Storage, []*store.Volume, error) {
	s := store.NewStorage()
	var opened []*store.Volume

	root, err := store.OpenVolume(primary)
	if err != nil {
		return nil, nil, err
	}
	opened = append(opened, root)
	if err := s.Mount("", root, ""); err != nil {
		closeAll(opened)
		return nil, nil, err
	}

	entries, err := loadManifest(primary)
	if err != nil {
		closeAll(opened)
		return nil, nil, err
	}
	for _, e := range entries {
		v, err := store.OpenVolume(e.Path)
		if err != nil {
			closeAll(opened)
			return nil, nil, err
		}
		opened = append(opened, v)
		if err := s.Mount(e.Prefix, v, e.NodePath); err != nil {
			closeAll(opened)
			return nil, nil, err
		}
	}
	return s, opened, nil
}

func closeAll(vols []*store.Volume) {
	for _, v := range vols {
		_ = v.Close()
	}
}
