package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "http://cdn.local/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Put(ctx, "flyers", "2024/expo.webp", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "flyers/2024/expo.webp", path)
	assert.Equal(t, "http://cdn.local/uploads/flyers/2024/expo.webp", store.PublicURL(path))

	file, err := store.Open(path)
	require.NoError(t, err)
	body, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	objects, err := store.List("flyers")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, path, objects[0].Path)

	require.NoError(t, store.Delete(ctx, path))
	require.NoError(t, store.Delete(ctx, path))
	_, err = store.Open(path)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	objects, err = store.List("avatars")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestObjectPathRejectsTraversal(t *testing.T) {
	_, err := ObjectPath("flyers", "../secrets")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = ObjectPath("", "a.webp")
	assert.ErrorIs(t, err, ErrInvalidPath)

	bucket, name, err := SplitObjectPath("logos/shop.webp")
	require.NoError(t, err)
	assert.Equal(t, "logos", bucket)
	assert.Equal(t, "shop.webp", name)

	_, _, err = SplitObjectPath("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, _, err = SplitObjectPath("logos/../../x")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestProcessImageDownscalesAndEncodesWebP(t *testing.T) {
	data := pngFixture(t, 400, 200)
	assert.Equal(t, "image/png", SniffContentType(data))

	out, err := ProcessImage(data, ImageOptions{MaxWidth: 100, MaxHeight: 100, ThumbnailSize: 32, Quality: 70})
	require.NoError(t, err)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)
	assert.Equal(t, "image/webp", SniffContentType(out.Original))

	thumb, err := webp.Decode(bytes.NewReader(out.Thumbnail))
	require.NoError(t, err)
	assert.Equal(t, 32, thumb.Bounds().Dx())
	assert.Equal(t, 32, thumb.Bounds().Dy())
}

func TestProcessImageRejectsNonImages(t *testing.T) {
	_, err := ProcessImage([]byte("%PDF-1.4 not an image"), ImageOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	_, err = ProcessImage(nil, ImageOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
