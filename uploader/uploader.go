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

// Package uploader ships finished recording segments to S3, renaming
// them by file birth time and laying them out under date folders. The
// newest .mp4 in the directory is always left alone as the recorder may
// still be writing to it.
package uploader

import (
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/juju/ratelimit"
)

const (
	finalNameFormat  = "gcam_02012006_150405.mp4"
	dateFolderFormat = "2006-01-02"
)

type Config struct {
	Dir     string
	Region  string
	Bucket  string
	Prefix  string
	MaxRate int64 // upload bandwidth cap in bytes/sec, 0 is unlimited
}

// s3API is the slice of s3manager.Uploader the uploader needs.
type s3API interface {
	Upload(input *s3manager.UploadInput, options ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

type Uploader struct {
	dir    string
	bucket string
	prefix string
	s3     s3API
	rate   *ratelimit.Bucket
}

func New(conf Config) (*Uploader, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(conf.Region),
	})
	if err != nil {
		return nil, err
	}
	return newWithClient(conf, s3manager.NewUploader(sess)), nil
}

func newWithClient(conf Config, client s3API) *Uploader {
	up := &Uploader{
		dir:    conf.Dir,
		bucket: conf.Bucket,
		prefix: strings.TrimRight(conf.Prefix, "/"),
		s3:     client,
	}
	if conf.MaxRate > 0 {
		up.rate = ratelimit.NewBucketWithRate(float64(conf.MaxRate), conf.MaxRate)
	}
	return up
}

// UploadAll runs a single pass over the recordings directory and
// returns the number of files shipped. A failed upload leaves the file
// in place for the next pass and doesn't stop the remaining candidates.
func (up *Uploader) UploadAll() (int, error) {
	files, err := candidateFiles(up.dir)
	if err != nil {
		return 0, err
	}

	uploaded := 0
	for _, path := range files {
		if err := up.uploadFile(path); err != nil {
			log.Printf("upload failed for %s: %v", filepath.Base(path), err)
			continue
		}
		uploaded++
	}
	return uploaded, nil
}

// candidateFiles returns the .mp4 files in dir sorted oldest first,
// excluding the newest one.
func candidateFiles(dir string) ([]string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []os.FileInfo
	for _, fi := range entries {
		if fi.Mode().IsRegular() && filepath.Ext(fi.Name()) == ".mp4" {
			files = append(files, fi)
		}
	}
	if len(files) < 2 {
		return nil, nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime().Before(files[j].ModTime())
	})

	paths := make([]string, 0, len(files)-1)
	for _, fi := range files[:len(files)-1] {
		paths = append(paths, filepath.Join(dir, fi.Name()))
	}
	return paths, nil
}

func (up *Uploader) uploadFile(path string) error {
	birth, err := birthTime(path)
	if err != nil {
		return err
	}

	finalName := birth.Format(finalNameFormat)
	finalPath := filepath.Join(up.dir, finalName)
	if finalPath != path {
		if err := os.Rename(path, finalPath); err != nil {
			return err
		}
	}

	key := birth.Format(dateFolderFormat) + "/" + finalName
	if up.prefix != "" {
		key = up.prefix + "/" + key
	}

	f, err := os.Open(finalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var body io.Reader = f
	if up.rate != nil {
		body = ratelimit.Reader(f, up.rate)
	}

	log.Printf("uploading to s3://%s/%s", up.bucket, key)
	_, err = up.s3.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(up.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return err
	}

	// Remove the local copy only once the upload has succeeded.
	if err := os.Remove(finalPath); err != nil {
		return err
	}
	log.Printf("deleted local file: %s", finalName)
	return nil
}

// birthTime returns the file's creation time where the filesystem
// records one, falling back to the inode change time.
func birthTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec)), nil
	}
	return fi.ModTime(), nil
}
