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
	"os"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/gcamproject/gcam-recorder/launcher"
)

const (
	dbusName = "org.gcam.recorder"
	dbusPath = "/org/gcam/recorder"
)

type service struct {
	launcher *launcher.Launcher
}

func startService(l *launcher.Launcher) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		launcher: l,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")

	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// Finish interrupts the pipeline runner so it finalizes the current
// segment and exits cleanly.
func (s *service) Finish() *dbus.Error {
	if err := s.launcher.Signal(os.Interrupt); err != nil {
		return &dbus.Error{
			Name: dbusName + ".Finish",
			Body: []interface{}{err.Error()},
		}
	}
	return nil
}

// Status reports whether the pipeline runner is up.
func (s *service) Status() (string, *dbus.Error) {
	if s.launcher.Running() {
		return "recording", nil
	}
	return "idle", nil
}
