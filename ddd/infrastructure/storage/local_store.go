package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"media-service/ddd/domain/gateway"
)

// LocalStore 以磁盘目录为后端的媒体存储实现
type LocalStore struct {
	rootDir string
}

// NewLocalStore 创建本地存储，根目录不存在时创建
func NewLocalStore(rootDir string) (gateway.MediaStore, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalStore{rootDir: abs}, nil
}

// AbsPath 解析相对路径；越界路径折叠回根目录内
func (s *LocalStore) AbsPath(relPath string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(relPath, "/"))
	return filepath.Join(s.rootDir, clean)
}

// Exists 检查相对路径是否存在
func (s *LocalStore) Exists(relPath string) bool {
	info, err := os.Stat(s.AbsPath(relPath))
	return err == nil && !info.IsDir()
}

// Open 打开文件用于读取
func (s *LocalStore) Open(relPath string) (io.ReadSeekCloser, error) {
	return os.Open(s.AbsPath(relPath))
}

// Create 创建文件用于写入，父目录一并创建
func (s *LocalStore) Create(relPath string) (io.WriteCloser, error) {
	abs := s.AbsPath(relPath)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create parent dir: %w", err)
	}
	return os.Create(abs)
}

// Delete 删除文件
func (s *LocalStore) Delete(relPath string) error {
	return os.Remove(s.AbsPath(relPath))
}

// SizeOf 返回文件字节数
func (s *LocalStore) SizeOf(relPath string) (int64, error) {
	info, err := os.Stat(s.AbsPath(relPath))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// EnsureDir 确保目录存在，不清空已有内容
func (s *LocalStore) EnsureDir(relPath string) error {
	return os.MkdirAll(s.AbsPath(relPath), 0o755)
}

// CleanDir 删除并重建目录，清掉上次失败残留的半成品分片
func (s *LocalStore) CleanDir(relPath string) error {
	abs := s.AbsPath(relPath)
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("remove dir: %w", err)
	}
	return os.MkdirAll(abs, 0o755)
}
