package hlsstream

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SpaceXe-tech/hls/internal/utils"
)

// origin spoofing, some direct URLs refuse requests without these
const inputUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
const inputReferer = "https://www.youtube.com/\r\n"

const stderrTailLines = 8

type FFmpegCtx struct {
	logger zerolog.Logger
	binary string
}

func NewFFmpeg(binary string) *FFmpegCtx {
	return &FFmpegCtx{
		logger: log.With().Str("module", "hlsstream").Str("submodule", "ffmpeg").Logger(),
		binary: binary,
	}
}

func transcodeArgs(req TranscodeRequest) []string {
	args := []string{
		"-loglevel", "warning",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "2",
		"-user_agent", inputUserAgent,
		"-headers", "Referer: " + inputReferer,
	}

	// seeking to zero makes some inputs reject the stream, skip the flag
	if req.StartTime > 0 {
		args = append(args,
			"-ss", fmt.Sprintf("%.6f", req.StartTime),
		)
	}

	args = append(args,
		"-i", req.InputURL,
		"-t", fmt.Sprintf("%.6f", req.Duration),
	)

	if req.AudioOnly {
		// raw AAC stream in ADTS framing
		args = append(args,
			"-vn",
			"-c:a", "aac",
			"-b:a", "128k",
			"-f", "adts",
		)
	} else {
		// source codecs are stream-copied into a transport stream
		args = append(args,
			"-c", "copy",
			"-f", "mpegts",
		)
	}

	return append(args, "pipe:1")
}

// Transcode starts the external process for one segment window and returns
// its stdout as a stream. The stream is torn down when the context is
// cancelled or Close is called, whichever comes first.
func (t *FFmpegCtx) Transcode(ctx context.Context, req TranscodeRequest) (io.ReadCloser, error) {
	cmd := exec.Command(t.binary, transcodeArgs(req)...)

	// own process group so teardown reaches ffmpeg's children too
	cmd.SysProcAttr = processGroupAttr()

	logger := t.logger.With().
		Float64("start", req.StartTime).
		Bool("audio-only", req.AudioOnly).
		Logger()

	tail := utils.LogTail(stderrTailLines)
	cmd.Stderr = io.MultiWriter(utils.LogWriter(logger), tail)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	logger.Debug().Int("pid", cmd.Process.Pid).Msg("transcode process started")

	stream := &processStream{
		logger: logger,
		cmd:    cmd,
		stdout: stdout,
		tail:   tail,
		done:   make(chan struct{}),
	}

	go func() {
		select {
		case <-ctx.Done():
			stream.kill()
		case <-stream.done:
		}
	}()

	return stream, nil
}

// processStream exposes a running subprocess's stdout as io.ReadCloser. A
// non-zero exit surfaces as a read error carrying the stderr tail, so
// callers that received no bytes can report the failure.
type processStream struct {
	logger zerolog.Logger
	cmd    *exec.Cmd
	stdout io.ReadCloser
	tail   *utils.LogTailCtx

	done     chan struct{}
	waitOnce sync.Once
	waitErr  error
}

func (s *processStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
		close(s.done)
	})
	<-s.done
	return s.waitErr
}

func (s *processStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err == io.EOF {
		if waitErr := s.wait(); waitErr != nil {
			if tail := s.tail.String(); tail != "" {
				return n, fmt.Errorf("%w: %s", waitErr, tail)
			}
			return n, waitErr
		}
	}
	return n, err
}

func (s *processStream) kill() {
	if s.cmd.Process == nil {
		return
	}

	if err := killProcessGroup(s.cmd); err != nil {
		s.logger.Err(err).Msg("could not kill process group")
	}
}

func (s *processStream) Close() error {
	select {
	case <-s.done:
		// already exited, nothing to kill
	default:
		s.kill()
	}

	// reap the process, stdout closes as a side effect
	if err := s.wait(); err != nil {
		s.logger.Debug().Err(err).Msg("transcode process exited")
	}

	return nil
}
