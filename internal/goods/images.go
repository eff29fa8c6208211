package goods

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/rajivgeraev/campus-market/internal/config"
)

// ErrImagesDisabled - ключи Cloudinary не настроены
var ErrImagesDisabled = errors.New("загрузка изображений не настроена")

// UploadParams - подписанные параметры для загрузки прямо из браузера
type UploadParams struct {
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder,omitempty"`
	PublicID  string `json:"public_id"`
}

// Uploaded - результат загрузки изображения
type Uploaded struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Images загружает фотографии товаров в Cloudinary
type Images struct {
	cfg config.CloudinaryConfig
	cld *cloudinary.Cloudinary
}

// NewImages создает новый экземпляр Images
func NewImages(cfg config.CloudinaryConfig) (*Images, error) {
	if !cfg.Enabled() {
		return &Images{cfg: cfg}, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("не удалось инициализировать Cloudinary: %w", err)
	}
	return &Images{cfg: cfg, cld: cld}, nil
}

// Enabled сообщает, настроена ли загрузка
func (i *Images) Enabled() bool {
	return i.cld != nil
}

// Upload загружает файл и возвращает https ссылку на него
func (i *Images) Upload(ctx context.Context, file io.Reader, filename string) (*Uploaded, error) {
	if !i.Enabled() {
		return nil, ErrImagesDisabled
	}

	resp, err := i.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:   i.cfg.UploadFolder,
		PublicID: publicID(filename),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки в Cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("Cloudinary отклонил файл: %s", resp.Error.Message)
	}
	return &Uploaded{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// publicID строит имя файла без расширения с уникальным суффиксом
func publicID(filename string) string {
	base := filename
	if dot := strings.LastIndex(base, "."); dot >= 0 {
		base = base[:dot]
	}
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = "goods"
	}
	return base + "_" + uuid.NewString()[:8]
}

// SignedParams создаёт параметры для загрузки из браузера
func (i *Images) SignedParams(now time.Time, publicID string) (*UploadParams, error) {
	if !i.cfg.Enabled() {
		return nil, ErrImagesDisabled
	}
	if publicID == "" {
		publicID = uuid.NewString()
	}

	timestamp := strconv.FormatInt(now.Unix(), 10)
	params := map[string]string{
		"timestamp": timestamp,
		"public_id": publicID,
	}
	if i.cfg.UploadFolder != "" {
		params["folder"] = i.cfg.UploadFolder
	}

	return &UploadParams{
		Timestamp: timestamp,
		Signature: Sign(params, i.cfg.APISecret),
		APIKey:    i.cfg.APIKey,
		CloudName: i.cfg.CloudName,
		Folder:    i.cfg.UploadFolder,
		PublicID:  publicID,
	}, nil
}

// Sign создаёт подпись Cloudinary: отсортированные пары key=value через &,
// секрет в конце, SHA-1 в hex
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}

	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "&") + secret))
	return hex.EncodeToString(h.Sum(nil))
}
