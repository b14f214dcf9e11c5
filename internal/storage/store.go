package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/san-kum/bouncebox/internal/world"
)

var (
	ErrInvalidName = errors.New("storage: invalid scene name")
	ErrNotFound    = errors.New("storage: scene not found")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

const (
	sceneFile = "scene.yaml"
	metaFile  = "metadata.json"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type SceneMetadata struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Strokes   int       `json:"strokes"`
	Objects   int       `json:"objects"`
	Forces    int       `json:"forces"`
	Emitters  int       `json:"emitters"`
}

func checkName(name string) error {
	if !validName.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save writes the scene under name, replacing any previous version.
func (s *Store) Save(name string, scene *world.Scene) (*SceneMetadata, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := scene.Marshal()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.baseDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if err := writeAtomic(filepath.Join(dir, sceneFile), data); err != nil {
		return nil, err
	}

	meta := &SceneMetadata{
		Name:      name,
		Timestamp: time.Now(),
		Strokes:   len(scene.Strokes),
		Objects:   len(scene.Objects),
		Forces:    len(scene.Forces),
		Emitters:  len(scene.Emitters),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(filepath.Join(dir, metaFile), metaData); err != nil {
		return nil, err
	}
	return meta, nil
}

// writeAtomic replaces path so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads and validates the named scene.
func (s *Store) Load(name string) (*world.Scene, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, name, sceneFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	scene, err := world.ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}
	return scene, nil
}

// LoadFile reads and validates a scene from any path.
func LoadFile(path string) (*world.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return world.ParseScene(data)
}

// Delete removes the named scene.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	dir := filepath.Join(s.baseDir, name)
	if _, err := os.Stat(filepath.Join(dir, sceneFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return os.RemoveAll(dir)
}

// List returns the metadata of every saved scene, newest first.
func (s *Store) List() ([]SceneMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SceneMetadata{}, nil
		}
		return nil, err
	}

	scenes := make([]SceneMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), metaFile)
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta SceneMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		scenes = append(scenes, meta)
	}

	slices.SortFunc(scenes, func(a, b SceneMetadata) int { return b.Timestamp.Compare(a.Timestamp) })
	return scenes, nil
}
