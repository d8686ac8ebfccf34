package core

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"
)

// SessionMonitor is implemented by server-side session backends. The cookie
// backend has nothing to check.
type SessionMonitor interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// SystemStatus is the aggregate shown on the admin dashboard.
type SystemStatus struct {
	Sessions struct {
		Backend string `json:"backend"`
		Active  *int64 `json:"active,omitempty"`
		Healthy bool   `json:"healthy"`
	} `json:"sessions"`
	Users  UserStats `json:"users"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

type StatusService struct {
	backend   string
	sessions  SessionMonitor
	users     UserRepository
	startedAt time.Time
}

// NewStatusService accepts a nil monitor for the cookie backend.
func NewStatusService(backend string, sessions SessionMonitor, users UserRepository, startedAt time.Time) *StatusService {
	return &StatusService{backend: backend, sessions: sessions, users: users, startedAt: startedAt}
}

// Collect gathers the status. Only the user stats are required; the session
// count and memory figures are best-effort.
func (s *StatusService) Collect(ctx context.Context) (SystemStatus, error) {
	var st SystemStatus

	st.Sessions.Backend = s.backend
	st.Sessions.Healthy = true
	if s.sessions != nil {
		if err := s.sessions.Ping(ctx); err != nil {
			st.Sessions.Healthy = false
		} else if n, err := s.sessions.Count(ctx); err == nil {
			st.Sessions.Active = &n
		}
	}

	users, err := s.users.Stats(ctx)
	if err != nil {
		return SystemStatus{}, err
	}
	st.Users = users

	// Memory (best-effort from /proc/meminfo)
	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !s.startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(s.startedAt).Seconds())
	}

	return st, nil
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
