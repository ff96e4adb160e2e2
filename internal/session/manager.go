package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session is the per-guild playback record. It is owned exclusively by the
// Manager; nothing else mutates it.
type Session struct {
	guildID string

	mu        sync.Mutex
	channelID string // current voice channel binding, "" if none
	status    Status
	current   *AudioSource
	seq       uint64 // resolution sequence, compared at apply time
	play      Playback
	idleTimer *time.Timer
}

// Manager serializes connect/move/play/stop/leave per guild and enforces
// single-flight resolution. Guilds are independent; each session has its
// own lock, which is never held across resolution or transport calls.
type Manager struct {
	voice    VoiceTransport
	states   VoiceStateLookup
	resolver Resolver
	settings SettingsSource

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(voice VoiceTransport, states VoiceStateLookup, resolver Resolver, settings SettingsSource) *Manager {
	return &Manager{
		voice:    voice,
		states:   states,
		resolver: resolver,
		settings: settings,
		sessions: make(map[string]*Session),
	}
}

// session returns the guild's session, creating it on first use.
func (m *Manager) session(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok {
		s = &Session{guildID: guildID, status: StatusIdle}
		m.sessions[guildID] = s
	}
	return s
}

func (m *Manager) peek(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

// alive reports whether s is still the registered session for the guild.
// A false result means a leave or forced disconnect won a race.
func (m *Manager) alive(guildID string, s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID] == s
}

// JoinOrMove binds the guild's voice connection to channelID: connects if
// absent, moves if elsewhere, no-ops if already there. The requesting user
// must currently be in a voice channel.
func (m *Manager) JoinOrMove(ctx context.Context, guildID, channelID, userID string) error {
	if _, ok := m.states.UserChannel(guildID, userID); !ok {
		return ErrUserNotInVoice
	}
	return m.connect(ctx, m.session(guildID), channelID)
}

func (m *Manager) connect(ctx context.Context, s *Session, channelID string) error {
	s.mu.Lock()
	if s.channelID == channelID {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// network work happens outside the lock
	if err := m.voice.Join(ctx, s.guildID, channelID); err != nil {
		return err
	}

	s.mu.Lock()
	s.channelID = channelID
	s.cancelIdleLocked()
	s.mu.Unlock()
	return nil
}

// Play resolves query and streams the result into the requesting user's
// voice channel, hard-cutting whatever was playing. A play issued while a
// prior resolution is still in flight supersedes it: the stale result is
// discarded at apply time via the sequence number and the superseded call
// returns ErrSuperseded without touching session state.
func (m *Manager) Play(ctx context.Context, guildID, userID, query string) (string, error) {
	channelID, ok := m.states.UserChannel(guildID, userID)
	if !ok {
		return "", ErrUserNotInVoice
	}

	s := m.session(guildID)
	if err := m.connect(ctx, s, channelID); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.current = nil
	s.cancelIdleLocked()
	// at most one audible stream per guild: hard cut, no fade. The stop
	// wait releases the lock, so the sequence is claimed first and
	// re-checked after; a newer play landing in that window wins.
	m.stopPlaybackLocked(s)
	if s.seq != seq {
		s.mu.Unlock()
		return "", ErrSuperseded
	}
	s.status = StatusResolving
	s.mu.Unlock()

	src, rerr := m.resolver.Resolve(ctx, query)

	s.mu.Lock()
	if s.seq != seq || !m.alive(guildID, s) {
		s.mu.Unlock()
		slog.Debug("discarding stale resolution", "guildID", guildID, "seq", seq)
		return "", ErrSuperseded
	}
	if rerr != nil {
		s.status = StatusIdle
		s.mu.Unlock()
		return "", rerr
	}
	s.mu.Unlock()

	if set := m.sessionSettings(ctx, guildID); set.DefaultVolume != nil {
		src.SetVolume(*set.DefaultVolume)
	}

	pb, perr := m.voice.Play(ctx, guildID, src)
	if perr != nil {
		s.mu.Lock()
		if s.seq == seq {
			s.status = StatusIdle
		}
		s.mu.Unlock()
		return "", perr
	}

	s.mu.Lock()
	if s.seq != seq || !m.alive(guildID, s) {
		// a newer play or a leave won while the stream was starting
		s.mu.Unlock()
		pb.Stop()
		return "", ErrSuperseded
	}
	s.play = pb
	s.current = src
	s.status = StatusPlaying
	s.mu.Unlock()

	go m.watch(guildID, s, pb)

	slog.Info("playback started", "guildID", guildID, "title", src.Title)
	return src.Title, nil
}

// Stop halts playback for the guild. No-op (nil) unless something is
// playing; ErrNotConnected when the guild has no session at all.
func (m *Manager) Stop(guildID string) error {
	s := m.peek(guildID)
	if s == nil {
		return ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying {
		return nil
	}
	m.stopPlaybackLocked(s)
	return nil
}

// Leave stops playback, releases the voice connection and deletes the
// session. Returns ErrNotConnected when there is nothing to leave, so
// callers can tell the user.
func (m *Manager) Leave(ctx context.Context, guildID string) error {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if ok {
		delete(m.sessions, guildID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}

	s.mu.Lock()
	m.stopPlaybackLocked(s)
	s.cancelIdleLocked()
	s.channelID = ""
	s.status = StatusIdle
	s.mu.Unlock()

	return m.voice.Leave(ctx, guildID)
}

// HandleBotVoiceUpdate applies a gateway-reported change to the bot's own
// voice state: an empty channel means the bot was removed and the session
// is torn down without a Leave call; otherwise the binding follows the move.
func (m *Manager) HandleBotVoiceUpdate(guildID, channelID string) {
	if channelID == "" {
		m.mu.Lock()
		s, ok := m.sessions[guildID]
		delete(m.sessions, guildID)
		m.mu.Unlock()
		if !ok {
			return
		}
		s.mu.Lock()
		m.stopPlaybackLocked(s)
		s.cancelIdleLocked()
		s.mu.Unlock()
		slog.Info("removed from voice, session discarded", "guildID", guildID)
		return
	}

	s := m.peek(guildID)
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.channelID != channelID {
		slog.Debug("voice binding moved externally", "guildID", guildID, "channelID", channelID)
		s.channelID = channelID
	}
	s.mu.Unlock()
}

// Current returns the bound source and status for the guild, if any.
func (m *Manager) Current(guildID string) (*AudioSource, Status) {
	s := m.peek(guildID)
	if s == nil {
		return nil, StatusIdle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.status
}

// SetVolume adjusts the currently bound source's volume coefficient.
func (m *Manager) SetVolume(guildID string, v float64) error {
	s := m.peek(guildID)
	if s == nil {
		return ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNothingPlaying
	}
	s.current.SetVolume(v)
	return nil
}

// stopPlaybackLocked halts the active playback, if any. Caller must hold
// s.mu; the lock is released while waiting for the stream to wind down so
// stop/leave stay responsive.
func (m *Manager) stopPlaybackLocked(s *Session) {
	pb := s.play
	if pb == nil {
		return
	}
	s.play = nil
	s.current = nil
	s.status = StatusStopping

	s.mu.Unlock()
	pb.Stop()
	select {
	case <-pb.Done():
	case <-time.After(2 * time.Second):
	}
	s.mu.Lock()

	if s.status == StatusStopping {
		s.status = StatusIdle
	}
}

// watch waits for the stream to end and returns the session to Idle. A
// transport error is logged, not fatal: the guild stays connected, ready
// for the next play.
func (m *Manager) watch(guildID string, s *Session, pb Playback) {
	err := <-pb.Done()

	s.mu.Lock()
	if s.play != pb {
		// already stopped or replaced; nothing to apply
		s.mu.Unlock()
		return
	}
	s.play = nil
	s.current = nil
	s.status = StatusIdle
	s.mu.Unlock()

	if err != nil {
		slog.Error("playback ended with transport error", "guildID", guildID, "err", err)
	} else {
		slog.Debug("playback finished", "guildID", guildID)
	}

	m.scheduleIdleDisconnect(guildID, s)
}

func (m *Manager) sessionSettings(ctx context.Context, guildID string) Settings {
	if m.settings == nil {
		return Settings{}
	}
	set, err := m.settings.SessionSettings(ctx, guildID)
	if err != nil {
		slog.Warn("loading guild settings failed", "guildID", guildID, "err", err)
		return Settings{}
	}
	return set
}

func (m *Manager) scheduleIdleDisconnect(guildID string, s *Session) {
	// settings load can block, keep it outside the lock
	set := m.sessionSettings(context.Background(), guildID)
	if set.IdleDisconnect <= 0 {
		return
	}
	// the session may have been torn down while settings loaded; a timer
	// armed on an orphaned session would disconnect its replacement
	if !m.alive(guildID, s) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(set.IdleDisconnect, func() {
		if !m.alive(guildID, s) {
			return
		}
		s.mu.Lock()
		idle := s.status == StatusIdle && s.play == nil
		s.mu.Unlock()
		if idle {
			_ = m.Leave(context.Background(), guildID)
		}
	})
}

func (s *Session) cancelIdleLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}
