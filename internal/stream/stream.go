package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/yukimura-dev/hibiki/internal/config"
	"github.com/yukimura-dev/hibiki/internal/session"
)

const (
	frameInterval = 20 * time.Millisecond
	readyTimeout  = 5 * time.Second
	sendTimeout   = 200 * time.Millisecond
)

// Stream is one running transcode-and-send pipeline. It satisfies
// session.Playback: Stop is idempotent and Done fires exactly once, with
// nil on a clean end (EOF or stop) and an error on transport failure.
type Stream struct {
	cancel context.CancelFunc
	done   chan error

	stopOnce sync.Once
	doneOnce sync.Once
}

// Play starts streaming src into an established voice connection. The
// returned Stream is already running; errors after startup surface on
// Done, not here.
func Play(ctx context.Context, cfg *config.Config, vc *discordgo.VoiceConnection, src *session.AudioSource) (*Stream, error) {
	if vc == nil {
		return nil, errors.New("no voice connection")
	}

	ctx2, cancel := context.WithCancel(ctx)

	pcm, err := StartPCM(ctx2, cfg, src.StreamURL)
	if err != nil {
		cancel()
		return nil, err
	}

	enc, err := NewOpusEncoder()
	if err != nil {
		pcm.Close()
		cancel()
		return nil, err
	}

	st := &Stream{
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go st.run(ctx2, vc, pcm, enc, src)
	return st, nil
}

func (s *Stream) Stop() {
	s.stopOnce.Do(s.cancel)
}

func (s *Stream) Done() <-chan error {
	return s.done
}

func (s *Stream) finish(err error) {
	s.doneOnce.Do(func() {
		s.done <- err
		close(s.done)
	})
}

func (s *Stream) run(ctx context.Context, vc *discordgo.VoiceConnection, pcm *PCMProcess, enc *OpusEncoder, src *session.AudioSource) {
	defer pcm.Close()
	defer s.cancel()

	if err := waitReady(ctx, vc); err != nil {
		s.finish(err)
		return
	}

	if err := vc.Speaking(true); err != nil {
		s.finish(fmt.Errorf("set speaking: %w", err))
		return
	}
	defer func() {
		_ = vc.Speaking(false)
	}()

	reader := bufio.NewReaderSize(pcm.Stdout(), FrameBytes*4)
	frame := make([]byte, FrameBytes)

	// pace frames at real time; OpusSend has a small buffer and the
	// ticker keeps us from flooding it
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		if _, err := io.ReadFull(reader, frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || ctx.Err() != nil {
				s.finish(nil)
				return
			}
			s.finish(fmt.Errorf("read pcm: %w (ffmpeg: %s)", err, pcm.Stderr()))
			return
		}

		pkt, err := enc.Encode(frame, src.Volume())
		if err != nil {
			s.finish(err)
			return
		}
		// the encoder reuses its output buffer, the send needs a copy
		out := make([]byte, len(pkt))
		copy(out, pkt)

		select {
		case <-ctx.Done():
			s.finish(nil)
			return
		case <-ticker.C:
		}

		select {
		case vc.OpusSend <- out:
		case <-ctx.Done():
			s.finish(nil)
			return
		case <-time.After(sendTimeout):
			slog.Warn("opus send stalled, dropping frame")
		}
	}
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	deadline := time.Now().Add(readyTimeout)
	for !vc.Ready {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return errors.New("voice connection not ready")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}
