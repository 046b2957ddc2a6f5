// Package promptstore persists prompt templates as YAML files.
package promptstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/runoshun/par/internal/domain"
)

const (
	fileExt  = ".yaml"
	lockName = ".lock"
)

// Store implements domain.PromptStore with one <name>.yaml file per prompt.
type Store struct {
	dir   string
	clock domain.Clock
}

// Ensure Store implements domain.PromptStore interface.
var _ domain.PromptStore = (*Store)(nil)

// New creates a Store rooted at dir. The directory is created on first write.
func New(dir string, clock domain.Clock) *Store {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Store{dir: dir, clock: clock}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes p, preserving CreatedAt of an existing prompt with the same name.
func (s *Store) Save(p *domain.PromptTemplate) error {
	if err := domain.ValidatePromptName(p.Name); err != nil {
		return err
	}
	if strings.TrimSpace(p.Template) == "" {
		return domain.ErrEmptyPrompt
	}

	return s.withLock(syscall.LOCK_EX, func() error {
		now := s.clock.Now()
		if existing, err := s.read(p.Name); err == nil {
			p.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, domain.ErrPromptNotFound) {
			return err
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.ModifiedAt = now

		content, err := yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode prompt %q: %w", p.Name, err)
		}
		return writeAtomic(domain.PromptFilePath(s.dir, p.Name), content, 0o600)
	})
}

// Load returns the prompt named name.
func (s *Store) Load(name string) (*domain.PromptTemplate, error) {
	if err := domain.ValidatePromptName(name); err != nil {
		return nil, err
	}
	var p *domain.PromptTemplate
	err := s.withLock(syscall.LOCK_SH, func() error {
		var err error
		p, err = s.read(name)
		return err
	})
	return p, err
}

// List returns every stored prompt sorted by name.
// Files that fail to parse are skipped.
func (s *Store) List() ([]*domain.PromptTemplate, error) {
	var prompts []*domain.PromptTemplate
	err := s.withLock(syscall.LOCK_SH, func() error {
		entries, err := os.ReadDir(s.dir)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read prompt directory: %w", err)
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
				continue
			}
			name := strings.TrimSuffix(e.Name(), fileExt)
			if domain.ValidatePromptName(name) != nil {
				continue
			}
			p, err := s.read(name)
			if err != nil {
				continue
			}
			prompts = append(prompts, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].Name < prompts[j].Name
	})
	return prompts, nil
}

// Delete removes the prompt named name.
func (s *Store) Delete(name string) error {
	if err := domain.ValidatePromptName(name); err != nil {
		return err
	}
	return s.withLock(syscall.LOCK_EX, func() error {
		err := os.Remove(domain.PromptFilePath(s.dir, name))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrPromptNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("delete prompt %q: %w", name, err)
		}
		return nil
	})
}

// Exists reports whether a prompt named name is stored.
func (s *Store) Exists(name string) (bool, error) {
	if err := domain.ValidatePromptName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(domain.PromptFilePath(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat prompt %q: %w", name, err)
	}
	return true, nil
}

func (s *Store) read(name string) (*domain.PromptTemplate, error) {
	content, err := os.ReadFile(domain.PromptFilePath(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPromptNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read prompt %q: %w", name, err)
	}

	var p domain.PromptTemplate
	if err := yaml.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("parse prompt %q: %w", name, err)
	}
	// The file name is authoritative.
	p.Name = name
	if p.ModifiedAt.IsZero() {
		p.ModifiedAt = p.CreatedAt
	}
	return &p, nil
}

func (s *Store) withLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	lock, err := os.OpenFile(filepath.Join(s.dir, lockName), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lock.Close() }()

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN) }()

	return fn()
}

func writeAtomic(path string, content []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
