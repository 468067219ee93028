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
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"

	"github.com/gcamproject/gcam-recorder/launcher"
)

var version = "<not set>"

type Args struct {
	ConfigFile   string `arg:"-c,--config" help:"path to configuration file"`
	OutputDir    string `arg:"-o,--output-dir" help:"override the recording output directory"`
	ChunkSeconds int    `arg:"--chunk-seconds" help:"override the segment length in seconds"`
	Timestamps   bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/gcam-recorder.yaml"
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err == nil {
		return
	}
	if exitErr, ok := err.(*launcher.ExitError); ok {
		log.Printf("recording pipeline failed: %v", err)
		os.Exit(exitErr.Code)
	}
	log.Fatal(err)
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}
	if args.OutputDir != "" {
		conf.Pipeline.OutputDir = args.OutputDir
	}
	if args.ChunkSeconds > 0 {
		conf.Pipeline.ChunkDuration = time.Duration(args.ChunkSeconds) * time.Second
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	logConfig(conf)

	if err := ensureOutputDir(conf.Pipeline.OutputDir); err != nil {
		return err
	}

	if conf.MinDiskSpace > 0 {
		enoughSpace, err := checkDiskSpace(conf.MinDiskSpace, conf.Pipeline.OutputDir)
		if err != nil {
			return fmt.Errorf("checking disk space: %v", err)
		}
		if !enoughSpace {
			return fmt.Errorf("less than %d MB free in %s", conf.MinDiskSpace, conf.Pipeline.OutputDir)
		}
	}

	l := launcher.New(conf.Tool, conf.Pipeline.Args())

	if err := startService(l); err != nil {
		log.Printf("d-bus unavailable, control service disabled: %v", err)
	}

	log.Printf("launching: %s %s", conf.Tool, &conf.Pipeline)
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)
	err = l.RunNotify(func(pid int) {
		log.Printf("recording started (pid %d)", pid)
		daemon.SdNotify(false, daemon.SdNotifyReady)
	})
	if err != nil {
		return err
	}

	log.Println("recording finished")
	return nil
}

func logConfig(conf *Config) {
	log.Printf("pipeline runner: %s", conf.Tool)
	log.Printf("output dir: %s", conf.Pipeline.OutputDir)
	log.Printf("segment length: %s", conf.Pipeline.ChunkDuration)
	log.Printf("capture: %dx%d@%d %s", conf.Pipeline.Width, conf.Pipeline.Height,
		conf.Pipeline.FrameRate, conf.Pipeline.PixelFormat)
	log.Printf("encoder: %d b/s, keyframe every %d frames",
		conf.Pipeline.Bitrate, conf.Pipeline.KeyframeInterval)
	log.Printf("minimum disk space: %d MB", conf.MinDiskSpace)
}

// ensureOutputDir creates the recording directory if needed. An
// existing directory is reused as-is; segments from a previous run are
// left in place for the uploader.
func ensureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %v", err)
	}
	return nil
}

func checkDiskSpace(mb uint64, dir string) (bool, error) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(dir, &fs); err != nil {
		return false, err
	}
	return fs.Bavail*uint64(fs.Bsize)/1024/1024 >= mb, nil
}
