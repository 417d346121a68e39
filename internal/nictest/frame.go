package nictest

// EtherTypeEtherCAT is the frame type the raw socket sends and binds to.
const EtherTypeEtherCAT = 0x88A4

// FrameSize is the length of the frame sent every cycle.
const FrameSize = 29

// BuildFrame returns the broadcast frame sent once per cycle: an Ethernet
// header followed by a minimal EtherCAT datagram header.
func BuildFrame() [FrameSize]byte {
	var f [FrameSize]byte

	// destination: broadcast
	for i := 0; i < 6; i++ {
		f[i] = 0xff
	}
	// source stays all zero (bytes 6-11)

	f[12] = EtherTypeEtherCAT >> 8
	f[13] = EtherTypeEtherCAT & 0xff

	f[14] = 0x0d // EtherCAT frame length
	f[15] = 0x10 // frame type
	f[16] = 0x08 // command
	f[17] = 0xff // index, unused
	// subordinate address stays zero (bytes 18-19)
	f[20] = 0x00 // offset address
	f[21] = 0x05
	f[22] = 0x01 // last sub command, no round trip

	return f
}
