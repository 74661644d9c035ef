// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package remote executes power and discovery commands against kiosk
// machines: Wake-on-LAN over UDP, shutdown/reboot/MAC-discovery over SSH.
// Every operation returns a uniform Result; failures never cross the
// package boundary as errors or panics, so a dead kiosk can never take an
// admin connection down with it.
package remote

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/szbani/kioskfleet/internal/config"
	"github.com/szbani/kioskfleet/internal/logging"
)

// NullMacAddress is what MAC discovery reports for loopback targets. It is
// never a valid Wake-on-LAN target.
const NullMacAddress = "00:00:00:00:00:00"

// macPattern matches a full six-octet hardware address with ":" or "-"
// separators.
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)

// macLinePattern extracts the first hardware address embedded in command
// output.
var macLinePattern = regexp.MustCompile(`([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})`)

// Result is the uniform outcome of every remote operation. Message carries a
// human-readable diagnostic, or the discovered value for queries.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// osFamily classifies a target for command selection.
type osFamily int

const (
	osUnknown osFamily = iota
	osLinux
	osDarwin
	osWindows
)

// Adapter runs remote commands with configured credentials. It is stateless
// per call and safe for concurrent use.
type Adapter struct {
	cfg    config.SSHConfig
	dialer Dialer

	// dialPacket opens the datagram socket for Wake-on-LAN. Swappable in
	// tests.
	dialPacket func(network, address string) (net.Conn, error)
}

// New creates an adapter using SSH sessions for command execution.
func New(cfg config.SSHConfig) *Adapter {
	return NewWithDialer(cfg, NewSSHDialer(cfg))
}

// NewWithDialer creates an adapter with a custom session dialer.
func NewWithDialer(cfg config.SSHConfig, dialer Dialer) *Adapter {
	return &Adapter{
		cfg:        cfg,
		dialer:     dialer,
		dialPacket: net.Dial,
	}
}

// WakeOnLan broadcasts a magic packet for the given hardware address. The
// packet is 6 bytes of 0xFF followed by 16 repetitions of the MAC.
func (a *Adapter) WakeOnLan(mac string) Result {
	mac = NormalizeMacAddress(mac)
	if mac == NullMacAddress {
		return Result{Success: false, Message: "Cannot wake up localhost."}
	}
	if !macPattern.MatchString(mac) {
		return Result{Success: false, Message: fmt.Sprintf("Invalid MAC address: %s", mac)}
	}

	hw, err := net.ParseMAC(mac)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Invalid MAC address: %s", mac)}
	}

	packet := make([]byte, 0, 102)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hw...)
	}

	conn, err := a.dialPacket("udp", a.cfg.WakeBroadcastAddr)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to open broadcast socket: %v", err)}
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to send magic packet: %v", err)}
	}

	logging.Info().Str("mac", mac).Msg("magic packet sent")
	return Result{Success: true, Message: fmt.Sprintf("Magic packet sent to %s", mac)}
}

// Shutdown powers off the machine at the given address.
func (a *Adapter) Shutdown(address string) Result {
	return a.runPowerCommand(address, map[osFamily]string{
		osLinux:   "sudo shutdown -h now",
		osDarwin:  "sudo shutdown -h now",
		osWindows: "shutdown /s /f /t 0",
	}, "shutdown")
}

// Reboot restarts the machine at the given address.
func (a *Adapter) Reboot(address string) Result {
	return a.runPowerCommand(address, map[osFamily]string{
		osLinux:   "sudo reboot",
		osDarwin:  "sudo reboot",
		osWindows: "shutdown /r /f /t 0",
	}, "reboot")
}

func (a *Adapter) runPowerCommand(address string, commands map[osFamily]string, action string) Result {
	if isLoopback(address) {
		return Result{Success: false, Message: fmt.Sprintf("Refusing to %s the server host.", action)}
	}

	session, err := a.dialer.Dial(hostOnly(address))
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to connect to %s: %v", address, err)}
	}
	defer session.Close()

	family := detectOS(session)
	cmd, ok := commands[family]
	if !ok {
		return Result{Success: false, Message: fmt.Sprintf("Could not determine remote OS of %s", address)}
	}

	// Power commands drop the link mid-execution; a severed session after
	// the command was accepted still counts as success.
	if _, err := session.Run(cmd); err != nil && !isDisconnect(err) {
		return Result{Success: false, Message: fmt.Sprintf("Remote %s failed: %v", action, err)}
	}

	logging.Info().Str("address", address).Str("action", action).Msg("remote power command executed")
	return Result{Success: true, Message: fmt.Sprintf("Remote %s initiated on %s", action, address)}
}

// DiscoverMacAddress queries the first hardware address of the machine at
// the given address. Loopback short-circuits to the null MAC so a kiosk
// colocated with the server still gets a stable identity.
func (a *Adapter) DiscoverMacAddress(address string) Result {
	if isLoopback(address) {
		return Result{Success: true, Message: NullMacAddress}
	}

	session, err := a.dialer.Dial(hostOnly(address))
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to connect to %s: %v", address, err)}
	}
	defer session.Close()

	var cmd string
	switch detectOS(session) {
	case osLinux:
		cmd = "ip link show | awk '/ether/ {print $2}'"
	case osDarwin:
		cmd = "ifconfig | awk '/ether/ {print $2}'"
	case osWindows:
		cmd = "getmac"
	default:
		return Result{Success: false, Message: fmt.Sprintf("Could not determine remote OS of %s", address)}
	}

	output, err := session.Run(cmd)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("MAC discovery failed: %v", err)}
	}

	for _, line := range strings.Split(output, "\n") {
		if match := macLinePattern.FindString(line); match != "" {
			return Result{Success: true, Message: NormalizeMacAddress(match)}
		}
	}
	return Result{Success: false, Message: fmt.Sprintf("No hardware address in output of %q", cmd)}
}

// NormalizeMacAddress canonicalizes separators to ":".
func NormalizeMacAddress(mac string) string {
	return strings.ReplaceAll(strings.TrimSpace(mac), "-", ":")
}

// detectOS probes the target: a Unix-style probe first, a Windows-style
// probe as fallback.
func detectOS(session Session) osFamily {
	if output, err := session.Run("uname -a"); err == nil && strings.TrimSpace(output) != "" {
		if strings.Contains(output, "Darwin") {
			return osDarwin
		}
		return osLinux
	}
	if _, err := session.Run("systeminfo"); err == nil {
		return osWindows
	}
	return osUnknown
}

// hostOnly strips an optional port from an address.
func hostOnly(address string) string {
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return address
}

func isLoopback(address string) bool {
	host := hostOnly(address)
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// isDisconnect reports whether an error looks like the transport dropping,
// which is the expected outcome of a successful power command.
func isDisconnect(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "connection lost")
}
