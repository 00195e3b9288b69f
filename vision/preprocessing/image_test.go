package preprocessing

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return bytes.NewReader(buf.Bytes())
}

func TestDecodeAndPreprocessShape(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 6))
	p := NewImageProcessor(4)

	out, err := p.DecodeAndPreprocess(encodePNG(t, img))
	require.NoError(t, err)

	assert.Equal(t, 3, out.Channels)
	assert.Equal(t, 4, out.Width)
	assert.Equal(t, 4, out.Height)
	assert.Len(t, out.Data, 3*4*4)
}

func TestDecodeAndPreprocessNormalizesToUnitRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 128, B: 0, A: 255})
		}
	}
	p := NewImageProcessor(2)

	out, err := p.DecodeAndPreprocess(encodePNG(t, img))
	require.NoError(t, err)

	plane := 2 * 2
	assert.InDelta(t, 1.0, out.Data[0], 1e-3)            // red plane
	assert.InDelta(t, 128.0/255.0, out.Data[plane], 1e-2) // green plane
	assert.InDelta(t, 0.0, out.Data[2*plane], 1e-3)       // blue plane
}

func TestDecodeAndPreprocessDownscalePreservesLayout(t *testing.T) {
	// Left half red, right half green; after resize column 0 stays red and
	// column 1 stays green.
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 4 {
				c = color.RGBA{G: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	p := NewImageProcessor(2)

	out, err := p.DecodeAndPreprocess(encodePNG(t, img))
	require.NoError(t, err)

	plane := 2 * 2
	assert.InDelta(t, 1.0, out.Data[0], 1e-3)         // red at (0,0)
	assert.InDelta(t, 0.0, out.Data[1], 1e-3)         // no red at (0,1)
	assert.InDelta(t, 1.0, out.Data[plane+1], 1e-3)   // green at (0,1)
	assert.InDelta(t, 0.0, out.Data[plane], 1e-3)     // no green at (0,0)
}

func TestDecodeAndPreprocessRejectsGarbage(t *testing.T) {
	p := NewImageProcessor(4)
	_, err := p.DecodeAndPreprocess(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}
