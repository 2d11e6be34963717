package gateway

import "context"

// ArtifactMirror 产物异地镜像网关，失败只记日志不阻断管线
type ArtifactMirror interface {
	// Enabled 镜像是否启用
	Enabled() bool
	// MirrorFile 上传单个产物，返回对象路径
	MirrorFile(ctx context.Context, localPath, objectKey, contentType string) (string, error)
	// MirrorDir 递归上传目录（HLS分片树）
	MirrorDir(ctx context.Context, localDir, keyPrefix string) error
}
