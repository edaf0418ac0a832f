package image

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	gocache "github.com/patrickmn/go-cache"
	_ "golang.org/x/image/webp"

	"github.com/songquanpeng/visionbench/common/config"
	"github.com/songquanpeng/visionbench/common/logger"
)

// mimeTypes maps the supported image extensions to their MIME types. Files with
// any other extension are ignored during directory enumeration.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// payloadCache keeps encoded payloads around so each file is read and base64
// encoded once per run even though it is sent to every configured provider.
var payloadCache = gocache.New(5*time.Minute, 10*time.Minute)

// Payload is an image ready to be embedded in a provider request.
type Payload struct {
	Path     string
	MimeType string
	Base64   string
}

// Bytes decodes the payload back to raw bytes for SDK call shapes that embed
// binary image content instead of base64 strings.
func (p *Payload) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Base64)
	if err != nil {
		return nil, errors.Wrapf(err, "decode image payload %s", p.Path)
	}
	return raw, nil
}

// DataURL renders the payload as an inline data URL.
func (p *Payload) DataURL() string {
	return "data:" + p.MimeType + ";base64," + p.Base64
}

// IsSupported reports whether path carries one of the supported image extensions.
func IsSupported(path string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MimeType determines the MIME type from the file extension, defaulting to JPEG.
func MimeType(path string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "image/jpeg"
}

// Load reads an image file and returns its base64 payload. Loads are cached for
// the lifetime of a run.
func Load(path string) (*Payload, error) {
	if cached, ok := payloadCache.Get(path); ok {
		return cached.(*Payload), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat image %s", path)
	}
	maxSize := int64(config.MaxInlineImageSizeMB) * 1024 * 1024
	if info.Size() > maxSize {
		return nil, errors.Errorf("image size should not exceed %dMB: %s, size: %d",
			config.MaxInlineImageSizeMB, path, info.Size())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read image %s", path)
	}

	payload := &Payload{
		Path:     path,
		MimeType: MimeType(path),
		Base64:   base64.StdEncoding.EncodeToString(raw),
	}
	if width, height, err := GetImageSizeFromBase64(payload.Base64); err == nil {
		logger.Logger.Debug("image loaded",
			zap.String("path", path),
			zap.Int("width", width),
			zap.Int("height", height))
	} else {
		logger.Logger.Debug("image dimensions unknown",
			zap.String("path", path),
			zap.Error(err))
	}
	payloadCache.Set(path, payload, gocache.DefaultExpiration)
	return payload, nil
}

// ListDir returns the supported image files directly under dir in lexicographic
// order. Nested directories are not walked.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read image dir %s", dir)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

var readerPool = sync.Pool{
	New: func() any {
		return &bytes.Reader{}
	},
}

// GetImageSizeFromBase64 reports the pixel dimensions of a base64 encoded image.
func GetImageSizeFromBase64(encoded string) (width int, height int, err error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, 0, err
	}

	reader := readerPool.Get().(*bytes.Reader)
	defer readerPool.Put(reader)
	reader.Reset(decoded)

	img, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, err
	}

	return img.Width, img.Height, nil
}
