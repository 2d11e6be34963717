package gateway

import "io"

// MediaStore 媒体存储网关，按相对路径读写，不绑定具体后端
type MediaStore interface {
	// Exists 检查相对路径是否存在
	Exists(relPath string) bool
	// AbsPath 解析为宿主机绝对路径
	AbsPath(relPath string) string
	// Open 打开文件用于读取，Range流式下发需要Seek能力
	Open(relPath string) (io.ReadSeekCloser, error)
	// Create 创建文件用于写入，父目录不存在时一并创建
	Create(relPath string) (io.WriteCloser, error)
	// Delete 删除文件
	Delete(relPath string) error
	// SizeOf 返回文件字节数
	SizeOf(relPath string) (int64, error)
	// EnsureDir 确保目录存在，不清空已有内容
	EnsureDir(relPath string) error
	// CleanDir 删除并重建目录，清掉上次失败残留的半成品分片
	CleanDir(relPath string) error
}
