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
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"

	"github.com/gcamproject/gcam-recorder/loglimiter"
	"github.com/gcamproject/gcam-recorder/uploader"
)

var version = "<not set>"

type Args struct {
	Dir        string        `arg:"-d,--dir" help:"recordings directory to scan"`
	Bucket     string        `arg:"-b,--bucket" help:"S3 bucket (defaults to $S3_BUCKET_NAME)"`
	Region     string        `arg:"-r,--region" help:"AWS region (defaults to $AWS_REGION)"`
	Prefix     string        `arg:"-p,--prefix" help:"S3 key prefix (defaults to $S3_PREFIX)"`
	Interval   time.Duration `arg:"-i,--interval" help:"rescan interval; 0 runs a single pass"`
	MaxRate    int64         `arg:"--max-rate" help:"upload bandwidth cap in bytes/sec; 0 is unlimited"`
	Timestamps bool          `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.Dir = "recordings"
	arg.MustParse(&args)

	if args.Bucket == "" {
		args.Bucket = os.Getenv("S3_BUCKET_NAME")
	}
	if args.Region == "" {
		args.Region = os.Getenv("AWS_REGION")
	}
	if args.Prefix == "" {
		args.Prefix = os.Getenv("S3_PREFIX")
	}
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	if args.Bucket == "" {
		return errors.New("S3 bucket not set (use --bucket or S3_BUCKET_NAME)")
	}
	if args.Region == "" {
		return errors.New("AWS region not set (use --region or AWS_REGION)")
	}

	up, err := uploader.New(uploader.Config{
		Dir:     args.Dir,
		Region:  args.Region,
		Bucket:  args.Bucket,
		Prefix:  args.Prefix,
		MaxRate: args.MaxRate,
	})
	if err != nil {
		return err
	}

	if args.Interval <= 0 {
		n, err := up.UploadAll()
		if err != nil {
			return err
		}
		if n == 0 {
			log.Println("nothing to upload")
		} else {
			log.Printf("uploaded %d recordings", n)
		}
		return nil
	}

	// Watch mode. An idle directory would otherwise log the same line
	// every pass, so repeats are rate limited.
	limiter := loglimiter.New(time.Hour)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	log.Printf("watching %s every %s", args.Dir, args.Interval)
	for {
		n, err := up.UploadAll()
		switch {
		case err != nil:
			log.Printf("upload pass failed: %v", err)
		case n == 0:
			limiter.Print("nothing to upload")
		default:
			log.Printf("uploaded %d recordings", n)
		}

		select {
		case sig := <-sigs:
			log.Printf("%s received, stopping", sig)
			return nil
		case <-time.After(args.Interval):
		}
	}
}
