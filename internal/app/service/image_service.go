package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"devbook/internal/common"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
	"devbook/internal/platform/storage"
)

const (
	avatarSize    = 200
	avatarQuality = 80
)

type ImageService struct {
	storage storage.ObjectStorage
	users   repository.UserRepository
	now     func() time.Time
}

func NewImageService(store storage.ObjectStorage, users repository.UserRepository) *ImageService {
	return &ImageService{storage: store, users: users, now: time.Now}
}

// UploadUserImage stores a square JPEG avatar for the user and records its URL.
func (s *ImageService) UploadUserImage(ctx context.Context, userID, filename string, src io.Reader) (*model.User, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, common.BadRequest("Invalid image file!", map[string]string{"image": "Unsupported or corrupt image"})
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, squareThumbnail(img, avatarSize), &jpeg.Options{Quality: avatarQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	url, err := s.storage.PutPublicObject(ctx, s.objectKey(userID, filename), "image/jpeg", buf.Bytes())
	if err != nil {
		return nil, common.Internal("Unable to upload image!", err)
	}

	user, err := s.users.SetImage(ctx, userID, url)
	if err != nil {
		return nil, fmt.Errorf("failed to save image url: %w", err)
	}
	return user, nil
}

func (s *ImageService) objectKey(userID, filename string) string {
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("user-%s-%d-%s.jpeg", userID, s.now().UnixMilli(), base)
}

// squareThumbnail crops the centre square of src and scales it to size x size.
func squareThumbnail(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	crop := image.Rect(0, 0, side, side).Add(image.Pt(
		b.Min.X+(b.Dx()-side)/2,
		b.Min.Y+(b.Dy()-side)/2,
	))

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}
