package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// PNGWithDeclaredSize returns a valid 1x1 grayscale PNG whose IHDR chunk is
// rewritten to claim width x height. The header decodes cleanly, while the
// pixel data does not match it.
func PNGWithDeclaredSize(t *testing.T, width, height uint32) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	raw := buf.Bytes()

	// signature(8) | length(4) | "IHDR"(4) | width(4) height(4) ... | crc(4)
	require.Equal(t, "IHDR", string(raw[12:16]))
	binary.BigEndian.PutUint32(raw[16:20], width)
	binary.BigEndian.PutUint32(raw[20:24], height)
	binary.BigEndian.PutUint32(raw[29:33], crc32.ChecksumIEEE(raw[12:29]))

	return raw
}
