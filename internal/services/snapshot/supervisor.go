package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/macroscope/internal/common"
)

// Supervisor manages the lifecycle of the node-based screenshot service.
// It probes the service port before launching anything, so an externally
// managed service instance is left alone.
type Supervisor struct {
	config *common.SnapshotConfig
	logger arbor.ILogger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewSupervisor creates a supervisor for the configured screenshot service
func NewSupervisor(config *common.SnapshotConfig, logger arbor.ILogger) *Supervisor {
	return &Supervisor{
		config: config,
		logger: logger,
	}
}

// IsRunning probes the service port with a short TCP dial.
func (s *Supervisor) IsRunning() bool {
	addr, err := serviceAddr(s.config.ServiceURL)
	if err != nil {
		return false
	}

	conn, err := net.DialTimeout("tcp", addr, 1*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// EnsureRunning makes sure the screenshot service is accepting connections,
// launching it from the first candidate directory that holds its package.json
// when it is not. Safe to call from concurrent captures; only one launch
// happens at a time.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsRunning() {
		return nil
	}

	if !isLocalServiceURL(s.config.ServiceURL) {
		return fmt.Errorf("%w at %s", ErrServiceUnreachable, s.config.ServiceURL)
	}

	dir, err := s.findServiceDir()
	if err != nil {
		return err
	}

	s.logger.Info().Str("dir", dir).Msg("Starting screenshot service")

	name, args := "npm", []string{"start"}
	if len(s.config.StartCommand) > 0 {
		name, args = s.config.StartCommand[0], s.config.StartCommand[1:]
	}
	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	// Captured for the startup error report when the service dies early.
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return &StartupError{Attempts: 0, Output: err.Error()}
	}
	s.cmd = cmd

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	poll := s.config.StartupPoll
	if poll <= 0 {
		poll = 1 * time.Second
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.config.StartupAttempts; attempt++ {
		select {
		case <-ctx.Done():
			s.stopLocked()
			return ctx.Err()
		case <-done:
			// Process exited before the port came up.
			s.cmd = nil
			return &StartupError{Attempts: attempt, Output: output.String()}
		case <-ticker.C:
			if s.IsRunning() {
				s.logger.Info().
					Int("pid", cmd.Process.Pid).
					Int("attempts", attempt).
					Msg("Screenshot service is up")
				return nil
			}
			s.logger.Debug().
				Int("attempt", attempt).
				Int("max_attempts", s.config.StartupAttempts).
				Msg("Waiting for screenshot service")
		}
	}

	s.stopLocked()
	return &StartupError{Attempts: s.config.StartupAttempts, Output: output.String()}
}

// Stop terminates a service process this supervisor launched. A service that
// was already running externally is not touched.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Supervisor) stopLocked() {
	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to stop screenshot service process")
		}
	}
	s.cmd = nil
}

// findServiceDir probes the configured candidate directories, in order, for
// the service's package.json.
func (s *Supervisor) findServiceDir() (string, error) {
	for _, dir := range s.config.CandidateDirs {
		marker := filepath.Join(dir, "package.json")
		if info, err := os.Stat(marker); err == nil && !info.IsDir() {
			return dir, nil
		}
	}
	return "", ErrServiceNotFound
}

// isLocalServiceURL reports whether the service URL's host is this machine,
// which is the only case where launching a process can help.
func isLocalServiceURL(serviceURL string) bool {
	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// serviceAddr extracts the host:port dial address from the service URL.
func serviceAddr(serviceURL string) (string, error) {
	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return "", err
	}
	host := parsed.Hostname()
	port := parsed.Port()
	if port == "" {
		if parsed.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return net.JoinHostPort(host, port), nil
}
