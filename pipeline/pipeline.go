// gcam-recorder - chunked H.264 camera recording for Raspberry Pi
//  Copyright (C) 2026, The Gcam Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Config describes the capture pipeline handed to gst-launch: camera
// source, raw caps, bounded queue, hardware H.264 encode, parameter set
// injection and a segmented MP4 sink. Only the semantic parameters here
// are contract; the property spellings belong to GStreamer.
type Config struct {
	Width            int
	Height           int
	FrameRate        int
	PixelFormat      string
	LensPosition     float64
	MaxBuffers       int
	Bitrate          int
	KeyframeInterval int
	ChunkDuration    time.Duration
	OutputDir        string
	FilePattern      string
}

func DefaultConfig() Config {
	return Config{
		Width:            1920,
		Height:           1080,
		FrameRate:        30,
		PixelFormat:      "NV12",
		LensPosition:     0.0,
		MaxBuffers:       10,
		Bitrate:          2 * 1024 * 1024,
		KeyframeInterval: 60,
		ChunkDuration:    5 * time.Minute,
		OutputDir:        "recordings",
		FilePattern:      "gcam_%06d.mp4",
	}
}

var reCounter = regexp.MustCompile(`%0\d+d`)

func (conf *Config) Validate() error {
	if conf.Width <= 0 || conf.Height <= 0 {
		return errors.New("width and height should be positive")
	}
	if conf.FrameRate <= 0 {
		return errors.New("frame-rate should be positive")
	}
	if conf.PixelFormat == "" {
		return errors.New("pixel-format is required")
	}
	if conf.MaxBuffers <= 0 {
		return errors.New("max-buffers should be positive")
	}
	if conf.Bitrate <= 0 {
		return errors.New("bitrate should be positive")
	}
	if conf.KeyframeInterval <= 0 {
		return errors.New("keyframe-interval should be positive")
	}
	if conf.ChunkDuration < time.Second {
		return errors.New("chunk duration should be at least one second")
	}
	if conf.OutputDir == "" {
		return errors.New("output-dir is required")
	}
	if !reCounter.MatchString(conf.FilePattern) {
		return errors.New("file-pattern should contain a zero-padded counter (eg %06d)")
	}
	return nil
}

// Args returns the gst-launch argument list for the configured pipeline.
// The leading -e makes gst-launch send end-of-stream on interrupt so the
// muxer can finalize the open segment.
func (conf *Config) Args() []string {
	caps := fmt.Sprintf("video/x-raw,width=%d,height=%d,framerate=%d/1,format=%s",
		conf.Width, conf.Height, conf.FrameRate, conf.PixelFormat)

	controls := fmt.Sprintf(
		"controls,repeat_sequence_header=1,h264_i_frame_period=%d,video_bitrate=%d",
		conf.KeyframeInterval, conf.Bitrate)

	return []string{
		"-e",
		"libcamerasrc",
		"af-mode=manual",
		fmt.Sprintf("lens-position=%g", conf.LensPosition),
		"!",
		caps,
		"!",
		"queue",
		fmt.Sprintf("max-size-buffers=%d", conf.MaxBuffers),
		"leaky=downstream",
		"!",
		"v4l2h264enc",
		"extra-controls=" + controls,
		"!",
		"h264parse",
		"config-interval=-1",
		"!",
		"splitmuxsink",
		"muxer=mp4mux",
		fmt.Sprintf("max-size-time=%d", conf.ChunkDuration.Nanoseconds()),
		"location=" + filepath.Join(conf.OutputDir, conf.FilePattern),
	}
}

// String renders the pipeline as it would appear on a command line.
func (conf *Config) String() string {
	return strings.Join(conf.Args(), " ")
}
