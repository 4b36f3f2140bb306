// Package script defines the host functions a build-macro interpreter may
// call. The interpreter is not part of this module; it receives a Host and can
// only touch files below the Host's root.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrOutsideRoot is returned for paths that escape the host root.
var ErrOutsideRoot = errors.New("path escapes script root")

// Host is the capability surface exposed to scripts.
type Host interface {
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	// Replace substitutes every occurrence of old with new in the file and
	// returns the number of replacements.
	Replace(path, old, new string) (int, error)
	// Terminate asks the caller to stop the build with the given reason.
	Terminate(reason string)
}

// Hook is an interpreter entry point run against a Host before a package build.
type Hook interface {
	Run(ctx context.Context, host Host) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, host Host) error

func (f HookFunc) Run(ctx context.Context, host Host) error { return f(ctx, host) }

// Session is a Host rooted at a directory. It remembers a termination request.
type Session struct {
	root string

	mu         sync.Mutex
	terminated bool
	reason     string
}

// NewSession creates a Session confined to root.
func NewSession(root string) (*Session, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Session{root: abs}, nil
}

func (s *Session) resolve(path string) (string, error) {
	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return p, nil
}

func (s *Session) ReadFile(path string) (string, error) {
	p, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	return string(data), err
}

func (s *Session) WriteFile(path, content string) error {
	p, err := s.resolve(path)
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(content), 0o644)
}

func (s *Session) Replace(path, old, new string) (int, error) {
	if old == "" {
		return 0, errors.New("replace: empty search string")
	}
	content, err := s.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n := strings.Count(content, old)
	if n == 0 {
		return 0, nil
	}
	return n, s.WriteFile(path, strings.ReplaceAll(content, old, new))
}

func (s *Session) Terminate(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.terminated {
		s.terminated = true
		s.reason = reason
	}
}

// Terminated reports whether a script asked to stop, and why.
func (s *Session) Terminated() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated, s.reason
}

// TerminatedError is returned by RunHooks when a hook called Terminate.
type TerminatedError struct {
	Reason string
}

func (e *TerminatedError) Error() string { return "script terminated the build: " + e.Reason }

// RunHooks runs hooks in order against a fresh session rooted at dir. It stops
// at the first error or termination request.
func RunHooks(ctx context.Context, dir string, hooks []Hook) error {
	if len(hooks) == 0 {
		return nil
	}
	s, err := NewSession(dir)
	if err != nil {
		return err
	}
	for i, h := range hooks {
		if err := h.Run(ctx, s); err != nil {
			return fmt.Errorf("hook %d: %w", i, err)
		}
		if done, reason := s.Terminated(); done {
			return &TerminatedError{Reason: reason}
		}
	}
	return nil
}
