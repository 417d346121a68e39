package nictest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildFrame(t *testing.T) {
	f := BuildFrame()

	require.Len(t, f, 29)
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, f[0:6], "broadcast destination")
	require.Equal(t, make([]byte, 6), f[6:12], "zero source")
	require.Equal(t, []byte{0x88, 0xa4}, f[12:14])
	require.Equal(t, []byte{0x0d, 0x10, 0x08, 0xff, 0x00, 0x00, 0x00, 0x05, 0x01}, f[14:23])
	require.Equal(t, make([]byte, FrameSize-23), f[23:], "padding")
}
