package mavlink

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluenviron/gomavlib/v3"
)

// endpointConfFor turns a connection string such as "tcpout:127.0.0.1:5760",
// "udpin:0.0.0.0:14550" or "serial:/dev/ttyUSB0:57600" into the matching
// gomavlib endpoint configuration, the same scheme/host/port/baud shape the
// rest of the MAVLink ecosystem (QGroundControl, mavproxy) accepts on its
// own connection strings.
func endpointConfFor(address string) (gomavlib.NodeConf, error) {
	scheme, rest, ok := strings.Cut(address, ":")
	if !ok {
		return gomavlib.NodeConf{}, fmt.Errorf("mavlink: invalid connection string %q", address)
	}
	rest = strings.TrimPrefix(rest, "//")

	switch scheme {
	case "tcpout", "tcp":
		return gomavlib.NodeConf{
			Endpoints: []gomavlib.EndpointConf{
				gomavlib.EndpointTCPClient{Address: rest},
			},
		}, nil

	case "tcpin":
		return gomavlib.NodeConf{
			Endpoints: []gomavlib.EndpointConf{
				gomavlib.EndpointTCPServer{Address: rest},
			},
		}, nil

	case "udpout", "udp":
		return gomavlib.NodeConf{
			Endpoints: []gomavlib.EndpointConf{
				gomavlib.EndpointUDPClient{Address: rest},
			},
		}, nil

	case "udpin":
		return gomavlib.NodeConf{
			Endpoints: []gomavlib.EndpointConf{
				gomavlib.EndpointUDPServer{Address: rest},
			},
		}, nil

	case "serial":
		device, baudStr, ok := strings.Cut(rest, ":")
		baud := 57600
		if ok {
			if parsed, err := strconv.Atoi(baudStr); err == nil {
				baud = parsed
			}
		} else {
			device = rest
		}
		return gomavlib.NodeConf{
			Endpoints: []gomavlib.EndpointConf{
				gomavlib.EndpointSerial{Device: device, Baud: baud},
			},
		}, nil

	default:
		return gomavlib.NodeConf{}, fmt.Errorf("mavlink: unsupported connection scheme %q", scheme)
	}
}
