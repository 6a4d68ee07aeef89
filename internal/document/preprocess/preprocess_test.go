package preprocess

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"fisco/internal/document/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: 200, B: 120, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRun_RejectsEmptyPayload(t *testing.T) {
	p := New()
	_, err := p.Run(context.Background(), models.RawDocument{ID: domain.NewDocumentID()})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnsupportedFormat))
}

func TestRun_RejectsUnknownFormat(t *testing.T) {
	p := New()
	doc := models.RawDocument{
		ID:      domain.NewDocumentID(),
		Payload: []byte("definitely not an image"),
	}
	_, err := p.Run(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnsupportedFormat))
}

func TestRun_SinglePageFromPNG(t *testing.T) {
	p := New()
	doc := models.RawDocument{
		ID:      domain.NewDocumentID(),
		Payload: encodePNG(t, testImage(400, 300)),
	}

	pages, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	page := pages[0]
	assert.Equal(t, doc.ID, page.DocumentID)
	assert.Equal(t, 1, page.Number)
	assert.NotEmpty(t, page.PNG)
	assert.True(t, page.Params.Grayscale)
	assert.Equal(t, targetHeight, page.Params.TargetHeight, "small pages are upscaled")

	decoded, _, err := image.Decode(bytes.NewReader(page.PNG))
	require.NoError(t, err)
	assert.Equal(t, targetHeight, decoded.Bounds().Dy())
}

func TestRun_LargePagesKeepResolution(t *testing.T) {
	p := New()
	doc := models.RawDocument{
		ID:      domain.NewDocumentID(),
		Payload: encodePNG(t, testImage(100, 1500)),
	}

	pages, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Zero(t, pages[0].Params.TargetHeight, "no upscale recorded")

	decoded, _, err := image.Decode(bytes.NewReader(pages[0].PNG))
	require.NoError(t, err)
	assert.Equal(t, 1500, decoded.Bounds().Dy())
}

func TestRun_AcceptsJPEGAndTIFF(t *testing.T) {
	p := New()

	var jpegBuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpegBuf, testImage(200, 200), nil))
	var tiffBuf bytes.Buffer
	require.NoError(t, tiff.Encode(&tiffBuf, testImage(200, 200), nil))

	for name, payload := range map[string][]byte{
		"jpeg": jpegBuf.Bytes(),
		"tiff": tiffBuf.Bytes(),
	} {
		t.Run(name, func(t *testing.T) {
			pages, err := p.Run(context.Background(), models.RawDocument{
				ID:      domain.NewDocumentID(),
				Payload: payload,
			})
			require.NoError(t, err)
			require.Len(t, pages, 1)
			assert.NotEmpty(t, pages[0].PNG)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]struct {
		payload []byte
		want    Format
		ok      bool
	}{
		"pdf":     {[]byte("%PDF-1.7 rest"), FormatPDF, true},
		"png":     {[]byte("\x89PNG\r\n\x1a\nrest"), FormatPNG, true},
		"jpeg":    {[]byte("\xff\xd8\xffrest"), FormatJPEG, true},
		"tiff-le": {[]byte("II*\x00rest"), FormatTIFF, true},
		"tiff-be": {[]byte("MM\x00*rest"), FormatTIFF, true},
		"unknown": {[]byte("hello"), "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := DetectFormat(tc.payload)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
