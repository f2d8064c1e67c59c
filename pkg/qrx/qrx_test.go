package qrx

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderDataURI(t *testing.T) {
	uri := "otpauth://totp/BarTab:alice@example.com?algorithm=SHA1&digits=6&issuer=BarTab&period=30&secret=JBSWY3DPEHPK3PXP"

	dataURI, err := RenderDataURI(uri, 0)
	require.NoError(t, err)

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(dataURI, prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURI, prefix))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, DefaultSize, img.Bounds().Dx())
	require.Equal(t, DefaultSize, img.Bounds().Dy())
}

func TestRenderDataURIRejectsBadURI(t *testing.T) {
	_, err := RenderDataURI("://not a uri", 128)
	require.Error(t, err)
}
