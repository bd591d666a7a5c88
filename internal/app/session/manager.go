// Package session provides the host loop that keeps a player fed.
package session

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osa030/sdplay/internal/app/notification"
	"github.com/osa030/sdplay/internal/app/playback"
	"github.com/osa030/sdplay/internal/app/session/state"
	"github.com/osa030/sdplay/internal/infra/config"
	"github.com/osa030/sdplay/internal/infra/logger"
	"github.com/osa030/sdplay/internal/infra/output"
)

// Player is the part of the player the host loop drives.
type Player interface {
	SelectFile(name string) error
	Play() error
	Stop()
	Worker()
	Dir(fn func(name string)) error
	IsStopped() bool
	UnderrunOccurred() bool
	LastError() (playback.Code, error)
	Status() playback.Status
}

// Manager runs playback sessions on a player.
type Manager struct {
	// Configuration
	pollInterval   time.Duration
	statusInterval time.Duration

	// Components
	player       Player
	stateMgr     *state.Manager
	notification *notification.Manager

	log zerolog.Logger

	// Last failure seen by poll during the current run
	failure error
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, player Player) *Manager {
	sessionID := uuid.New().String()
	return &Manager{
		pollInterval:   cfg.PollInterval(),
		statusInterval: cfg.StatusInterval(),
		player:         player,
		stateMgr:       state.New(sessionID),
		notification:   notification.NewManager(),
		log:            logger.ForSession(sessionID),
	}
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// GetStats returns a snapshot of the current session.
func (m *Manager) GetStats() state.Stats {
	return m.stateMgr.GetStats()
}

// List returns the names of the files on storage.
func (m *Manager) List() ([]string, error) {
	var names []string
	if err := m.player.Dir(func(name string) { names = append(names, name) }); err != nil {
		return nil, errors.Wrap(err, "failed to list files")
	}
	return names, nil
}

// Run plays name to the end. The producer is invoked every poll interval
// until playback stops. If ctx is done first, playback is stopped and the
// context error returned. A failure recorded by the player ends the run with
// that failure.
func (m *Manager) Run(ctx context.Context, name string) error {
	if err := m.start(name); err != nil {
		return err
	}

	var pollC <-chan time.Time
	if m.pollInterval > 0 {
		t := time.NewTicker(m.pollInterval)
		defer t.Stop()
		pollC = t.C
	}
	var statusC <-chan time.Time
	if m.statusInterval > 0 {
		t := time.NewTicker(m.statusInterval)
		defer t.Stop()
		statusC = t.C
	}

	for {
		if pollC != nil {
			select {
			case <-ctx.Done():
				return m.abort(ctx.Err())
			case <-statusC:
				m.logStatus()
				continue
			case <-pollC:
			}
		} else {
			select {
			case <-ctx.Done():
				return m.abort(ctx.Err())
			case <-statusC:
				m.logStatus()
			default:
			}
		}

		if !m.Step() {
			return m.finish()
		}
	}
}

// Render plays name through the offline renderer and encodes it to ws. The
// renderer advances the loop one step per frame.
func (m *Manager) Render(ctx context.Context, name string, w *output.WAV, ws io.WriteSeeker) error {
	if err := m.start(name); err != nil {
		return err
	}

	err := w.Render(ws, func() bool {
		if ctx.Err() != nil {
			return false
		}
		return m.Step()
	})
	if err != nil {
		return m.abort(err)
	}
	if ctx.Err() != nil {
		return m.abort(ctx.Err())
	}

	m.log.Info().Msgf("rendered: file=%s frames=%d", name, w.Frames())
	return m.finish()
}

// Step runs the producer once and collects what the tick handler and the
// producer reported. It returns false once playback stopped.
func (m *Manager) Step() bool {
	m.player.Worker()
	m.poll()
	return !m.player.IsStopped()
}

func (m *Manager) start(name string) error {
	m.failure = nil
	m.stateMgr.Start(name)

	if err := m.player.SelectFile(name); err != nil {
		m.stateMgr.End(state.PhaseTerminated)
		code, _ := m.player.LastError()
		m.publish(notification.EventError, uint8(code), err.Error())
		return errors.Wrapf(err, "failed to select %s", name)
	}
	if err := m.player.Play(); err != nil {
		m.stateMgr.End(state.PhaseTerminated)
		return errors.Wrapf(err, "failed to play %s", name)
	}

	st := m.player.Status()
	m.log.Info().Msgf("playing: file=%s size=%d mode=%s", st.File, st.Size, st.Mode)
	m.publish(notification.EventStarted, 0, "")
	return nil
}

// poll drains the underrun flag and the recorded failure.
func (m *Manager) poll() {
	if m.player.UnderrunOccurred() {
		m.stateMgr.AddUnderrun()
		m.log.Warn().Msgf("underrun: file=%s", m.stateMgr.GetFile())
		m.publish(notification.EventUnderrun, 0, "")
	}

	code, err := m.player.LastError()
	if err == nil {
		return
	}
	m.stateMgr.AddError()
	m.failure = err
	m.log.Error().Msgf("player error: code=%s err=%v", code, err)
	m.publish(notification.EventError, uint8(code), err.Error())
}

// finish ends a run that stopped on its own.
func (m *Manager) finish() error {
	if m.failure != nil {
		m.stateMgr.End(state.PhaseTerminated)
		m.publish(notification.EventStopped, 0, m.failure.Error())
		return errors.Wrap(m.failure, "playback failed")
	}

	m.stateMgr.End(state.PhaseFinished)
	st := m.stateMgr.GetStats()
	m.log.Info().Msgf("finished: file=%s underruns=%d duration=%.2fs", st.File, st.Underruns, st.Duration)
	m.publish(notification.EventFinished, 0, "")
	return nil
}

// abort stops playback and ends the run with err.
func (m *Manager) abort(err error) error {
	m.player.Stop()
	m.stateMgr.End(state.PhaseTerminated)
	m.log.Info().Msgf("stopped: file=%s reason=%v", m.stateMgr.GetFile(), err)
	m.publish(notification.EventStopped, 0, err.Error())
	return err
}

func (m *Manager) logStatus() {
	st := m.player.Status()
	m.log.Info().Msgf("status: state=%s file=%s read=%d/%d buffered=%d/%d flags=%s",
		st.State, st.File, st.Consumed, st.Size, st.Buffered, st.Capacity, st.Flags)
}

func (m *Manager) publish(t notification.EventType, code uint8, msg string) {
	m.notification.Broadcast(&notification.Event{
		SessionID: m.stateMgr.GetSessionID(),
		Type:      t,
		File:      m.stateMgr.GetFile(),
		Code:      code,
		Message:   msg,
		Time:      time.Now(),
	})
}

// Close closes the session manager.
func (m *Manager) Close() {
	m.notification.Close()
}
