package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/yukimura-dev/hibiki/internal/config"
)

// PCMProcess wraps an ffmpeg subprocess decoding a stream URL to raw
// s16le 48k stereo PCM on stdout.
type PCMProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	cancel context.CancelFunc
}

// ffmpegArgs builds the decode invocation. The reconnect flags keep the
// stream alive across short network drops, per the configured policy.
func ffmpegArgs(cfg *config.Config, inputURL string) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if cfg.ReconnectOnDrop {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", strconv.Itoa(cfg.MaxReconnectDelaySec),
		)
	}
	args = append(args, "-i", inputURL)
	args = append(args,
		"-vn",
		"-ac", "2",
		"-ar", "48000",
		"-f", "s16le",
		"pipe:1",
	)
	return args
}

func StartPCM(ctx context.Context, cfg *config.Config, inputURL string) (*PCMProcess, error) {
	ctx2, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx2, "ffmpeg", ffmpegArgs(cfg, inputURL)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start: %w (stderr: %s)", err, stderr.String())
	}

	return &PCMProcess{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		cancel: cancel,
	}, nil
}

func (p *PCMProcess) Stdout() io.Reader {
	return p.stdout
}

// Stderr returns whatever ffmpeg wrote to stderr so far, for diagnostics.
func (p *PCMProcess) Stderr() string {
	return strings.TrimSpace(p.stderr.String())
}

func (p *PCMProcess) Close() {
	p.cancel()
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()
}
