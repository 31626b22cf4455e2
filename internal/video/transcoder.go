package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var (
	ErrTranscodeFailed = errors.New("video: transcoding failed")
	ErrFFmpegNotFound  = errors.New("video: ffmpeg not found in PATH")
	ErrFFprobeNotFound = errors.New("video: ffprobe not found in PATH")
	ErrInvalidVideo    = errors.New("video: invalid or corrupted video file")
)

type Metadata struct {
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Bitrate    int64   `json:"bitrate"`
	VideoCodec string  `json:"video_codec"`
	HasAudio   bool    `json:"has_audio"`
}

// Transcoder works on local files so one downloaded source can feed every quality.
type Transcoder interface {
	Probe(ctx context.Context, inputPath string) (*Metadata, error)
	Transcode(ctx context.Context, inputPath string, meta *Metadata, q Quality, outputPath string) error
	ExtractFrame(ctx context.Context, inputPath string, at float64, outputPath string) error
}

type FFmpegConfig struct {
	FFmpegPath  string
	FFprobePath string
	Preset      string
	CRF         int
}

func DefaultFFmpegConfig() *FFmpegConfig {
	return &FFmpegConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Preset:      "medium",
		CRF:         23,
	}
}

type FFmpeg struct {
	config *FFmpegConfig
}

var _ Transcoder = (*FFmpeg)(nil)

func NewFFmpeg(cfg *FFmpegConfig) (*FFmpeg, error) {
	if cfg == nil {
		cfg = DefaultFFmpegConfig()
	}
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}
	if _, err := exec.LookPath(cfg.FFprobePath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFprobeNotFound, err)
	}
	return &FFmpeg{config: cfg}, nil
}

func (f *FFmpeg) Transcode(ctx context.Context, inputPath string, meta *Metadata, q Quality, outputPath string) error {
	args := buildTranscodeArgs(f.config, meta, q, inputPath, outputPath)
	cmd := exec.CommandContext(ctx, f.config.FFmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s: %v, output: %s", ErrTranscodeFailed, q.Label, err, tail(output, 512))
	}
	return nil
}

func (f *FFmpeg) ExtractFrame(ctx context.Context, inputPath string, at float64, outputPath string) error {
	args := []string{
		"-ss", fmt.Sprintf("%.2f", at),
		"-i", inputPath,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, f.config.FFmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: extract frame: %v, output: %s", ErrTranscodeFailed, err, tail(output, 512))
	}
	return nil
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

func (f *FFmpeg) Probe(ctx context.Context, inputPath string) (*Metadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}
	output, err := exec.CommandContext(ctx, f.config.FFprobePath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe failed: %v", ErrInvalidVideo, err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", ErrInvalidVideo, err)
	}

	meta := &Metadata{}
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		meta.Duration = d
	}
	if b, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		meta.Bitrate = b
	}

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if meta.VideoCodec == "" {
				meta.VideoCodec = s.CodecName
				meta.Width = s.Width
				meta.Height = s.Height
			}
		case "audio":
			meta.HasAudio = true
		}
	}

	if meta.VideoCodec == "" {
		return nil, fmt.Errorf("%w: no video stream", ErrInvalidVideo)
	}
	return meta, nil
}

func buildTranscodeArgs(cfg *FFmpegConfig, meta *Metadata, q Quality, inputPath, outputPath string) []string {
	args := []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", cfg.Preset,
		"-crf", strconv.Itoa(cfg.CRF),
		"-vf", fmt.Sprintf("scale=-2:%d", q.Height),
		"-b:v", fmt.Sprintf("%dk", q.VideoBitrate),
		"-maxrate", fmt.Sprintf("%dk", q.VideoBitrate*3/2),
		"-bufsize", fmt.Sprintf("%dk", q.VideoBitrate*2),
	}

	if meta != nil && meta.HasAudio {
		args = append(args, "-c:a", "aac", "-b:a", fmt.Sprintf("%dk", q.AudioBitrate))
	} else {
		args = append(args, "-an")
	}

	return append(args, "-movflags", "+faststart", "-y", outputPath)
}

// ThumbnailOffset picks the frame timestamp: one second in, or the midpoint of shorter clips.
func ThumbnailOffset(duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	if duration/2 < 1 {
		return duration / 2
	}
	return 1
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
