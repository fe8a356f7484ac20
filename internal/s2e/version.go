package s2e

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// protocolVersion is the version string this station reports in the
// firmware and package fields of its opening "version" handshake
// message; that message's protocol field is the fixed integer 2.
const protocolVersion = "2.0.6"

// supportedLNSRange is the range of LNS protocol versions this station
// can negotiate with, parsed once at package init.
var supportedLNSRange version.Constraints

func init() {
	c, err := version.NewConstraint(">= 1.0.0, < 3.0.0")
	if err != nil {
		panic(err)
	}
	supportedLNSRange = c
}

// NegotiateVersion checks an LNS-advertised protocol version string
// against the range this station supports, rejecting the connection
// before any session state is built if they can't agree.
func NegotiateVersion(lnsVersion string) error {
	v, err := version.NewVersion(lnsVersion)
	if err != nil {
		return fmt.Errorf("s2e: unparsable LNS protocol version %q: %w", lnsVersion, err)
	}
	if !supportedLNSRange.Check(v) {
		return fmt.Errorf("s2e: LNS protocol version %s outside supported range %s", v, supportedLNSRange)
	}
	return nil
}

// StationVersionMessage builds this station's opening handshake message.
func StationVersionMessage(stationEUI, features string) map[string]any {
	return map[string]any{
		"msgtype":  "version",
		"station":  stationEUI,
		"firmware": protocolVersion,
		"package":  protocolVersion,
		"model":    "go-station",
		"protocol": 2,
		"features": features,
	}
}
