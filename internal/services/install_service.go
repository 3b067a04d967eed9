package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "monoinstall/internal/errors"
	"monoinstall/internal/installer"
	"monoinstall/internal/settings"
	ws "monoinstall/internal/websocket"
)

// RunState describes the lifecycle of install runs for the UI button cycle.
type RunState string

const (
	StateIdle       RunState = "idle"
	StateInstalling RunState = "installing"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

// InstallStatus is the externally visible state of the last/current run.
type InstallStatus struct {
	State      RunState        `json:"state"`
	Phase      installer.Phase `json:"phase,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// InstallService runs the install sequence, enforcing a single active run
// and streaming progress to websocket clients. Runs are never queued: a
// trigger during an active run is rejected with ErrInstallInProgress.
type InstallService struct {
	sequencer *installer.Sequencer
	store     *settings.Store
	hub       *ws.Hub
	logger    *slog.Logger

	inProgress atomic.Bool
	mu         sync.RWMutex
	status     InstallStatus
}

// NewInstallService creates the install service.
func NewInstallService(sequencer *installer.Sequencer, store *settings.Store, hub *ws.Hub, logger *slog.Logger) *InstallService {
	return &InstallService{
		sequencer: sequencer,
		store:     store,
		hub:       hub,
		logger:    logger.With(slog.String("service", "install")),
		status:    InstallStatus{State: StateIdle},
	}
}

// Run executes one install run synchronously. A verified license key must be
// on record. Sequence errors propagate to the caller; persisted settings are
// left untouched by a failed run.
func (s *InstallService) Run(ctx context.Context) error {
	if !s.inProgress.CompareAndSwap(false, true) {
		return apperrors.ErrInstallInProgress
	}
	defer s.inProgress.Store(false)

	current, err := s.store.Load()
	if err != nil {
		return err
	}
	if current.LicenseKey == "" {
		return apperrors.ErrLicenseRequired
	}

	started := time.Now()
	s.setStatus(InstallStatus{State: StateInstalling, StartedAt: &started})

	err = s.sequencer.Run(ctx, func(event installer.ProgressEvent) {
		progressEventsTotal.WithLabelValues(string(event.Phase)).Inc()
		s.mu.Lock()
		s.status.Phase = event.Phase
		s.mu.Unlock()

		if s.hub != nil {
			s.hub.Broadcast(ws.TypeInstallProgress, event)
		}
		s.logger.InfoContext(ctx, "install progress",
			slog.String("phase", string(event.Phase)),
			slog.String("message", event.Message))
	})

	finished := time.Now()
	if err != nil {
		installRunsTotal.WithLabelValues("failure").Inc()
		s.setStatus(InstallStatus{
			State:      StateFailed,
			Error:      err.Error(),
			StartedAt:  &started,
			FinishedAt: &finished,
		})
		if s.hub != nil {
			s.hub.Broadcast(ws.TypeInstallError, map[string]string{"error": err.Error()})
		}
		return err
	}

	installRunsTotal.WithLabelValues("success").Inc()
	s.setStatus(InstallStatus{
		State:      StateDone,
		StartedAt:  &started,
		FinishedAt: &finished,
	})
	if s.hub != nil {
		s.hub.Broadcast(ws.TypeInstallComplete, map[string]string{"status": "done"})
	}

	return nil
}

// Status returns the state of the last or current run.
func (s *InstallService) Status() InstallStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// InProgress reports whether a run is currently active.
func (s *InstallService) InProgress() bool {
	return s.inProgress.Load()
}

func (s *InstallService) setStatus(status InstallStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}
