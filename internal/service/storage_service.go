package service

import (
	"bytes"
	"context"
	"edu_network_backend/internal/config"
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/util"
	"edu_network_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 定义通用对象存储接口
type StorageProvider interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
	Delete(ctx context.Context, filename string) error
	GetURL(filename string) string
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, filename)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *LocalStorageProvider) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(p.Config.LocalPath, filename))
}

func (p *LocalStorageProvider) Delete(ctx context.Context, filename string) error {
	return os.Remove(filepath.Join(p.Config.LocalPath, filename))
}

func (p *LocalStorageProvider) GetURL(filename string) string {
	return "/uploads/" + filename
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, filename, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *MinioStorageProvider) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	return p.Client.GetObject(ctx, p.Config.MinioBucket, filename, minio.GetObjectOptions{})
}

func (p *MinioStorageProvider) Delete(ctx context.Context, filename string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, filename, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(filename string) string {
	return "/" + p.Config.MinioBucket + "/" + filename
}

// StorageService 存储服务，负责版本快照归档
type StorageService struct {
	Provider StorageProvider
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	if cfg.Storage.Type == util.StorageMinio {
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("minio unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &StorageService{Provider: provider}
}

type versionArchive struct {
	ContentID   string          `json:"contentId"`
	Version     string          `json:"version"`
	ChangeType  string          `json:"changeType"`
	ChangeNotes []string        `json:"changeNotes"`
	IsStable    bool            `json:"isStable"`
	CreatedBy   string          `json:"createdBy"`
	Payload     json.RawMessage `json:"payload"`
}

func VersionArchiveKey(contentID, version string) string {
	return fmt.Sprintf("versions/%s/%s.json", contentID, version)
}

// ArchiveVersion 将版本快照写入对象存储
func (s *StorageService) ArchiveVersion(ctx context.Context, v *model.ContentVersion) (string, error) {
	body, err := json.Marshal(versionArchive{
		ContentID:   v.ContentID,
		Version:     v.Version,
		ChangeType:  v.ChangeType,
		ChangeNotes: v.ChangeNotes,
		IsStable:    v.IsStable,
		CreatedBy:   v.CreatedBy,
		Payload:     json.RawMessage(v.Payload),
	})
	if err != nil {
		return "", err
	}
	return s.Provider.Upload(ctx, VersionArchiveKey(v.ContentID, v.Version), bytes.NewReader(body), int64(len(body)), "application/json")
}

// LoadArchivedPayload 读取归档快照中的 payload
func (s *StorageService) LoadArchivedPayload(ctx context.Context, contentID, version string) (json.RawMessage, error) {
	rc, err := s.Provider.Open(ctx, VersionArchiveKey(contentID, version))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var archive versionArchive
	if err := json.NewDecoder(rc).Decode(&archive); err != nil {
		return nil, err
	}
	return archive.Payload, nil
}
