//go:build linux

package nictest

import "golang.org/x/sys/unix"

// ParseTimestamping walks the control messages returned by recvmsg and
// extracts the SO_TIMESTAMPING payload. The last matching message wins.
func ParseTimestamping(oob []byte) Timestamps {
	var ts Timestamps
	for len(oob) > 0 {
		if len(oob) < unix.SizeofCmsghdr {
			ts.Malformed = true
			return ts
		}
		hdr, data, rest, err := unix.ParseOneSocketControlMessage(oob)
		if err != nil {
			ts.Malformed = true
			return ts
		}
		oob = rest

		if hdr.Level != unix.SOL_SOCKET {
			continue
		}
		if hdr.Type != unix.SO_TIMESTAMPING_NEW && hdr.Type != unix.SCM_TIMESTAMPING {
			continue
		}
		slots, ok := decodeTimestamping(data)
		if !ok {
			ts.Malformed = true
			continue
		}
		malformed := ts.Malformed
		ts = fromSlots(slots)
		ts.Malformed = malformed
	}
	return ts
}
