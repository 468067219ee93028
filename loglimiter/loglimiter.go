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

package loglimiter

import (
	"fmt"
	"log"
	"time"
)

// New returns a new LogLimiter with the configured minimum log interval.
func New(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		nowFunc:  time.Now,
		output:   func(s string) { log.Print(s) },
	}
}

// LogLimiter suppresses a log message repeated within some time
// interval. When a different message (or the same one after the
// interval) arrives, a single summary line reports how many repeats
// were dropped.
type LogLimiter struct {
	interval      time.Duration
	nowFunc       func() time.Time
	output        func(string)
	previousEntry string
	previousTime  time.Time
	suppressed    int
}

func (limiter *LogLimiter) Printf(format string, v ...interface{}) {
	limiter.Print(fmt.Sprintf(format, v...))
}

func (limiter *LogLimiter) Print(s string) {
	now := limiter.nowFunc()
	if s == limiter.previousEntry && now.Sub(limiter.previousTime) < limiter.interval {
		limiter.suppressed++
		return
	}

	if limiter.suppressed > 0 {
		limiter.output(fmt.Sprintf("last message repeated %d times", limiter.suppressed))
		limiter.suppressed = 0
	}
	limiter.output(s)
	limiter.previousTime = now
	limiter.previousEntry = s
}
