package usecase

import (
	"sync"
	"time"

	"StockPulse/pkg/util"
)

// PermissionGranted is the host notification permission that allows platform notifications.
const PermissionGranted = "granted"

// PresenceSnapshot is the last report from the host page.
type PresenceSnapshot struct {
	Visible                bool   `json:"visible"`
	NotificationPermission string `json:"notificationPermission"`
	ReportedAt             int64  `json:"reportedAt,omitempty"` // epoch ms
}

// Presence tracks whether the host page is foregrounded and whether it may
// show platform notifications. A report older than ttl counts as hidden.
type Presence struct {
	mu         sync.RWMutex
	visible    bool
	permission string
	reportedAt time.Time
	ttl        time.Duration
	now        Clock
}

func NewPresence(ttl time.Duration, now Clock) *Presence {
	return &Presence{ttl: ttl, now: now}
}

func (p *Presence) Report(visible bool, permission string) PresenceSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = visible
	p.permission = permission
	p.reportedAt = p.now()
	return p.snapshotLocked()
}

// Visible reports whether the host is foregrounded with a recent report.
func (p *Presence) Visible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.visible || p.reportedAt.IsZero() {
		return false
	}
	return p.ttl <= 0 || p.now().Sub(p.reportedAt) < p.ttl
}

// PushGranted reports whether the host allowed platform notifications.
func (p *Presence) PushGranted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.permission == PermissionGranted
}

func (p *Presence) Snapshot() PresenceSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *Presence) snapshotLocked() PresenceSnapshot {
	s := PresenceSnapshot{NotificationPermission: p.permission, Visible: p.visible}
	if !p.reportedAt.IsZero() {
		s.ReportedAt = util.EpochMillis(p.reportedAt)
	}
	return s
}
