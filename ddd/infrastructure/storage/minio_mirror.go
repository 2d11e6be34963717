package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"media-service/ddd/domain/gateway"
	"media-service/internal/resource"
	"media-service/pkg/logger"
)

// MinioMirror 把本地产物异地镜像到MinIO
type MinioMirror struct {
	minioResource *resource.MinioResource
}

// NewMinioMirror 创建产物镜像实例
func NewMinioMirror(minioResource *resource.MinioResource) gateway.ArtifactMirror {
	return &MinioMirror{minioResource: minioResource}
}

// Enabled 镜像是否启用（资源未打开时视为禁用）
func (m *MinioMirror) Enabled() bool {
	return m.minioResource != nil && m.minioResource.GetClient() != nil
}

// MirrorFile 上传单个产物，返回对象路径
func (m *MinioMirror) MirrorFile(ctx context.Context, localPath, objectKey, contentType string) (string, error) {
	if !m.Enabled() {
		return "", nil
	}
	client := m.minioResource.GetClient()
	bucketName := m.minioResource.GetBucketName()

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open local file failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("get file info failed: %w", err)
	}

	if contentType == "" {
		contentType = contentTypeByExtension(objectKey)
	}

	_, err = client.PutObject(ctx, bucketName, objectKey, file, fileInfo.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact to minio failed: %w", err)
	}

	logger.Info("Artifact mirrored", map[string]interface{}{
		"local_path": localPath,
		"object_key": objectKey,
		"size":       fileInfo.Size(),
	})
	return objectKey, nil
}

// MirrorDir 递归上传目录（HLS分片树）
func (m *MinioMirror) MirrorDir(ctx context.Context, localDir, keyPrefix string) error {
	if !m.Enabled() {
		return nil
	}
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(keyPrefix, "/") + "/" + filepath.ToSlash(rel)
		if _, err := m.MirrorFile(ctx, path, key, ""); err != nil {
			return err
		}
		return nil
	})
}

// contentTypeByExtension 根据文件扩展名获取内容类型
func contentTypeByExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4":
		return "video/mp4"
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
