package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"

	_ "golang.org/x/image/webp"
)

// maxLogoBytes bounds how much of a logo source is read.
const maxLogoBytes = 4 << 20

// LogoLoader fetches the raw bytes of the report logo. PNG, JPEG, GIF and
// WEBP images are accepted.
type LogoLoader func(ctx context.Context) ([]byte, error)

// FileLogo reads the logo from disk.
func FileLogo(path string) LogoLoader {
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxLogoBytes))
	}
}

// HTTPLogo downloads the logo with client, or http.DefaultClient when nil.
func HTTPLogo(client *http.Client, url string) LogoLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
	}
}

// loadLogo runs loader and waits for it or for ctx, whichever comes first.
func loadLogo(ctx context.Context, loader LogoLoader) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := loader(ctx)
		done <- result{data, err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// normaliseLogo decodes any supported format and re-encodes it as PNG,
// which the PDF writer embeds natively.
func normaliseLogo(raw []byte) ([]byte, image.Point, error) {
	if len(raw) == 0 {
		return nil, image.Point{}, errors.New("empty image")
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode logo: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode logo: %w", err)
	}
	return buf.Bytes(), img.Bounds().Size(), nil
}
