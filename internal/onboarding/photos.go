package onboarding

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const maxPhotoBytes = 8 << 20

// PhotoStore persists decoded photo bytes and returns a retrievable URL.
type PhotoStore interface {
	Upload(ctx context.Context, object, contentType string, data []byte) (string, error)
}

type photo struct {
	data        []byte
	contentType string
}

// decodePhoto accepts raw base64 or a data URL and insists on image content.
func decodePhoto(raw string) (*photo, error) {
	content := strings.TrimSpace(raw)
	if i := strings.Index(content, "base64,"); i >= 0 {
		content = content[i+len("base64,"):]
	}
	if content == "" {
		return nil, fmt.Errorf("empty photo")
	}

	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(content, "="))
		if err != nil {
			return nil, fmt.Errorf("decode photo: %w", err)
		}
	}
	if len(data) > maxPhotoBytes {
		return nil, fmt.Errorf("photo is %d bytes, limit is %d", len(data), maxPhotoBytes)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("photo content is %s, not an image", mime.String())
	}
	return &photo{data: data, contentType: mime.String()}, nil
}

// photoObject names the stored object, keeping only the base of a supplied
// filename.
func photoObject(onboardingID uuid.UUID, filename, fallback string) string {
	name := strings.TrimSpace(filename)
	if name != "" {
		name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	}
	if name == "" || name == "." || name == "/" {
		name = fallback
	}
	return fmt.Sprintf("onboardings/%s/%s", onboardingID, name)
}
