package video

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

var ErrInvalidLadder = errors.New("video: invalid quality ladder")

// Quality is one rung of the transcoding ladder.
type Quality struct {
	Label        string `yaml:"label" json:"label"`
	Width        int    `yaml:"width" json:"width"`
	Height       int    `yaml:"height" json:"height"`
	VideoBitrate int    `yaml:"video_kbps" json:"videoKbps"`
	AudioBitrate int    `yaml:"audio_kbps" json:"audioKbps"`
}

// Bitrate is the combined audio and video bitrate in kbps.
func (q Quality) Bitrate() int {
	return q.VideoBitrate + q.AudioBitrate
}

// Ladder is ordered by ascending height.
type Ladder []Quality

// DefaultLadder mirrors the resolution presets used for H.264 output.
var DefaultLadder = Ladder{
	{Label: "360p", Width: 640, Height: 360, VideoBitrate: 800, AudioBitrate: 64},
	{Label: "480p", Width: 854, Height: 480, VideoBitrate: 1500, AudioBitrate: 96},
	{Label: "720p", Width: 1280, Height: 720, VideoBitrate: 3000, AudioBitrate: 128},
	{Label: "1080p", Width: 1920, Height: 1080, VideoBitrate: 5000, AudioBitrate: 192},
}

func (l Ladder) Len() int { return len(l) }

func (l Ladder) Find(label string) (Quality, bool) {
	for _, q := range l {
		if q.Label == label {
			return q, true
		}
	}
	return Quality{}, false
}

func (l Ladder) Labels() []string {
	out := make([]string, len(l))
	for i, q := range l {
		out[i] = q.Label
	}
	return out
}

// Validate sorts the ladder by height and rejects empty, duplicate or zero-sized rungs.
func (l Ladder) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("%w: no qualities", ErrInvalidLadder)
	}
	seen := make(map[string]bool, len(l))
	for _, q := range l {
		if q.Label == "" || q.Height <= 0 || q.VideoBitrate <= 0 {
			return fmt.Errorf("%w: incomplete quality %+v", ErrInvalidLadder, q)
		}
		if seen[q.Label] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidLadder, q.Label)
		}
		seen[q.Label] = true
	}
	sort.SliceStable(l, func(i, j int) bool { return l[i].Height < l[j].Height })
	return nil
}

type ladderFile struct {
	Qualities Ladder `yaml:"qualities"`
}

// LoadLadder reads a YAML ladder file. An empty path yields DefaultLadder.
func LoadLadder(path string) (Ladder, error) {
	if path == "" {
		return append(Ladder(nil), DefaultLadder...), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ladder file: %w", err)
	}

	var f ladderFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse ladder file: %w", err)
	}

	for i := range f.Qualities {
		q := &f.Qualities[i]
		if q.Width == 0 && q.Height > 0 {
			q.Width = (q.Height*16/9 + 1) &^ 1
		}
	}

	if err := f.Qualities.Validate(); err != nil {
		return nil, err
	}
	return f.Qualities, nil
}
