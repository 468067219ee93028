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

package main

import (
	"errors"
	"io/ioutil"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/gcamproject/gcam-recorder/pipeline"
)

type Config struct {
	Tool         string
	MinDiskSpace uint64
	Pipeline     pipeline.Config
}

func (conf *Config) Validate() error {
	if conf.Tool == "" {
		return errors.New("tool is required")
	}
	return conf.Pipeline.Validate()
}

type rawConfig struct {
	Tool             string  `yaml:"tool"`
	OutputDir        string  `yaml:"output-dir"`
	MinDiskSpace     uint64  `yaml:"min-disk-space"`
	ChunkSecs        int     `yaml:"chunk-secs"`
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	FrameRate        int     `yaml:"frame-rate"`
	PixelFormat      string  `yaml:"pixel-format"`
	LensPosition     float64 `yaml:"lens-position"`
	MaxBuffers       int     `yaml:"max-buffers"`
	Bitrate          int     `yaml:"bitrate"`
	KeyframeInterval int     `yaml:"keyframe-interval"`
	FilePattern      string  `yaml:"file-pattern"`
}

func defaultRawConfig() rawConfig {
	p := pipeline.DefaultConfig()
	return rawConfig{
		Tool:             "gst-launch-1.0",
		OutputDir:        p.OutputDir,
		MinDiskSpace:     200,
		ChunkSecs:        int(p.ChunkDuration / time.Second),
		Width:            p.Width,
		Height:           p.Height,
		FrameRate:        p.FrameRate,
		PixelFormat:      p.PixelFormat,
		LensPosition:     p.LensPosition,
		MaxBuffers:       p.MaxBuffers,
		Bitrate:          p.Bitrate,
		KeyframeInterval: p.KeyframeInterval,
		FilePattern:      p.FilePattern,
	}
}

// ParseConfigFile loads the yaml config. A missing file just means the
// defaults; the recorder is usable with no configuration at all.
func ParseConfigFile(filename string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		buf = nil
	} else if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	raw := defaultRawConfig()
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, err
	}

	conf := &Config{
		Tool:         raw.Tool,
		MinDiskSpace: raw.MinDiskSpace,
		Pipeline: pipeline.Config{
			Width:            raw.Width,
			Height:           raw.Height,
			FrameRate:        raw.FrameRate,
			PixelFormat:      raw.PixelFormat,
			LensPosition:     raw.LensPosition,
			MaxBuffers:       raw.MaxBuffers,
			Bitrate:          raw.Bitrate,
			KeyframeInterval: raw.KeyframeInterval,
			ChunkDuration:    time.Duration(raw.ChunkSecs) * time.Second,
			OutputDir:        raw.OutputDir,
			FilePattern:      raw.FilePattern,
		},
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
