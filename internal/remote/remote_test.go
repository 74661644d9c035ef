// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package remote

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/szbani/kioskfleet/internal/config"
)

// fakeSession scripts command output per command string. Unscripted commands
// fail.
type fakeSession struct {
	outputs map[string]string
	errs    map[string]error
	ran     []string
	closed  bool
}

func (s *fakeSession) Run(cmd string) (string, error) {
	s.ran = append(s.ran, cmd)
	if err, ok := s.errs[cmd]; ok {
		return "", err
	}
	if out, ok := s.outputs[cmd]; ok {
		return out, nil
	}
	return "", errors.New("command not found")
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeDialer struct {
	session *fakeSession
	err     error
	dialed  []string
}

func (d *fakeDialer) Dial(host string) (Session, error) {
	d.dialed = append(d.dialed, host)
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

// packetConn captures the bytes written to the broadcast socket.
type packetConn struct {
	net.Conn
	written []byte
}

func (c *packetConn) Write(b []byte) (int, error) {
	c.written = append(c.written, b...)
	return len(b), nil
}

func (c *packetConn) Close() error { return nil }

func testConfig() config.SSHConfig {
	return config.SSHConfig{
		Username:          "fleet",
		Password:          "secret",
		Port:              22,
		ConnectTimeout:    time.Second,
		CommandTimeout:    time.Second,
		WakeBroadcastAddr: "255.255.255.255:9",
	}
}

func newTestAdapter(dialer Dialer) (*Adapter, *packetConn) {
	a := NewWithDialer(testConfig(), dialer)
	pc := &packetConn{}
	a.dialPacket = func(network, address string) (net.Conn, error) {
		if network != "udp" || address != "255.255.255.255:9" {
			return nil, errors.New("unexpected dial target")
		}
		return pc, nil
	}
	return a, pc
}

func TestWakeOnLanBuildsMagicPacket(t *testing.T) {
	a, pc := newTestAdapter(&fakeDialer{})

	res := a.WakeOnLan("AA:BB:CC:DD:EE:FF")
	if !res.Success {
		t.Fatalf("WakeOnLan = %+v", res)
	}
	if len(pc.written) != 102 {
		t.Fatalf("packet = %d bytes, want 102", len(pc.written))
	}
	for i := 0; i < 6; i++ {
		if pc.written[i] != 0xFF {
			t.Fatalf("packet header byte %d = %#x, want 0xff", i, pc.written[i])
		}
	}
	mac := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for rep := 0; rep < 16; rep++ {
		for i, b := range mac {
			if pc.written[6+rep*6+i] != b {
				t.Fatalf("packet repetition %d byte %d = %#x, want %#x", rep, i, pc.written[6+rep*6+i], b)
			}
		}
	}
}

func TestWakeOnLanNormalizesSeparators(t *testing.T) {
	a, pc := newTestAdapter(&fakeDialer{})

	if res := a.WakeOnLan("aa-bb-cc-dd-ee-ff"); !res.Success {
		t.Fatalf("WakeOnLan with dashes = %+v", res)
	}
	if len(pc.written) != 102 {
		t.Fatalf("packet = %d bytes, want 102", len(pc.written))
	}
}

func TestWakeOnLanRejectsInvalidMac(t *testing.T) {
	a, pc := newTestAdapter(&fakeDialer{})

	for _, mac := range []string{"", "nonsense", "AA:BB:CC:DD:EE", "GG:BB:CC:DD:EE:FF"} {
		res := a.WakeOnLan(mac)
		if res.Success {
			t.Errorf("WakeOnLan(%q) succeeded", mac)
		}
	}
	if len(pc.written) != 0 {
		t.Fatal("packet sent for invalid input")
	}
}

func TestWakeOnLanRejectsNullMac(t *testing.T) {
	a, pc := newTestAdapter(&fakeDialer{})

	res := a.WakeOnLan(NullMacAddress)
	if res.Success || res.Message != "Cannot wake up localhost." {
		t.Fatalf("WakeOnLan(null) = %+v", res)
	}
	if len(pc.written) != 0 {
		t.Fatal("packet sent for null MAC")
	}
}

func TestShutdownSelectsCommandByOS(t *testing.T) {
	cases := []struct {
		name    string
		session *fakeSession
		wantCmd string
	}{
		{
			name: "linux",
			session: &fakeSession{outputs: map[string]string{
				"uname -a":               "Linux kiosk-1 6.8.0 x86_64 GNU/Linux",
				"sudo shutdown -h now":   "",
			}},
			wantCmd: "sudo shutdown -h now",
		},
		{
			name: "windows",
			session: &fakeSession{outputs: map[string]string{
				"systeminfo":        "Host Name: KIOSK-2\nOS Name: Microsoft Windows 11",
				"shutdown /s /f /t 0": "",
			}},
			wantCmd: "shutdown /s /f /t 0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, _ := newTestAdapter(&fakeDialer{session: tc.session})
			res := a.Shutdown("10.0.0.5")
			if !res.Success {
				t.Fatalf("Shutdown = %+v", res)
			}
			found := false
			for _, cmd := range tc.session.ran {
				if cmd == tc.wantCmd {
					found = true
				}
			}
			if !found {
				t.Fatalf("commands run = %v, want %q", tc.session.ran, tc.wantCmd)
			}
			if !tc.session.closed {
				t.Fatal("session left open")
			}
		})
	}
}

func TestShutdownRejectsLoopback(t *testing.T) {
	dialer := &fakeDialer{}
	a, _ := newTestAdapter(dialer)

	for _, addr := range []string{"127.0.0.1", "::1", "localhost", "127.0.0.1:8585"} {
		if res := a.Shutdown(addr); res.Success {
			t.Errorf("Shutdown(%q) succeeded", addr)
		}
	}
	if len(dialer.dialed) != 0 {
		t.Fatalf("loopback target was dialed: %v", dialer.dialed)
	}
}

func TestRebootToleratesDroppedLink(t *testing.T) {
	session := &fakeSession{
		outputs: map[string]string{"uname -a": "Linux kiosk-1"},
		errs:    map[string]error{"sudo reboot": errors.New("wait: remote command exited without exit status: EOF")},
	}
	a, _ := newTestAdapter(&fakeDialer{session: session})

	if res := a.Reboot("10.0.0.5"); !res.Success {
		t.Fatalf("Reboot with dropped link = %+v", res)
	}
}

func TestPowerCommandUnreachableHost(t *testing.T) {
	a, _ := newTestAdapter(&fakeDialer{err: errors.New("connection refused")})

	res := a.Shutdown("10.0.0.99")
	if res.Success || !strings.Contains(res.Message, "connection refused") {
		t.Fatalf("Shutdown unreachable = %+v", res)
	}
}

func TestDiscoverMacAddress(t *testing.T) {
	session := &fakeSession{outputs: map[string]string{
		"uname -a": "Linux kiosk-1 6.8.0",
		"ip link show | awk '/ether/ {print $2}'": "aa:bb:cc:dd:ee:01\naa:bb:cc:dd:ee:02\n",
	}}
	a, _ := newTestAdapter(&fakeDialer{session: session})

	res := a.DiscoverMacAddress("10.0.0.5")
	if !res.Success || res.Message != "aa:bb:cc:dd:ee:01" {
		t.Fatalf("DiscoverMacAddress = %+v", res)
	}
}

func TestDiscoverMacAddressWindowsNormalizes(t *testing.T) {
	session := &fakeSession{outputs: map[string]string{
		"systeminfo": "OS Name: Microsoft Windows 11",
		"getmac":     "Physical Address    Transport Name\nAA-BB-CC-DD-EE-03   \\Device\\Tcpip_{...}\n",
	}}
	a, _ := newTestAdapter(&fakeDialer{session: session})

	res := a.DiscoverMacAddress("10.0.0.6")
	if !res.Success || res.Message != "AA:BB:CC:DD:EE:03" {
		t.Fatalf("DiscoverMacAddress = %+v", res)
	}
}

func TestDiscoverMacAddressLoopback(t *testing.T) {
	dialer := &fakeDialer{}
	a, _ := newTestAdapter(dialer)

	res := a.DiscoverMacAddress("127.0.0.1")
	if !res.Success || res.Message != NullMacAddress {
		t.Fatalf("DiscoverMacAddress(loopback) = %+v", res)
	}
	if len(dialer.dialed) != 0 {
		t.Fatal("loopback target was dialed")
	}
}

func TestDiscoverMacAddressNoMatch(t *testing.T) {
	session := &fakeSession{outputs: map[string]string{
		"uname -a": "Linux kiosk-1",
		"ip link show | awk '/ether/ {print $2}'": "no interfaces\n",
	}}
	a, _ := newTestAdapter(&fakeDialer{session: session})

	if res := a.DiscoverMacAddress("10.0.0.5"); res.Success {
		t.Fatalf("DiscoverMacAddress without MAC output = %+v", res)
	}
}
