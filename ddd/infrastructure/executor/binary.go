package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"media-service/pkg/config"
)

// defaultSearchPaths 常见安装位置，逐个尝试后再回退PATH查找
var defaultSearchPaths = []string{
	"/usr/bin",
	"/usr/local/bin",
	"/opt/homebrew/bin",
}

// ToolLocator 按固定目录列表加PATH回退查找外部工具
type ToolLocator struct {
	searchPaths []string
	overrides   map[string]string
}

// NewToolLocator 创建工具查找器，配置可覆盖二进制路径与搜索目录
func NewToolLocator(cfg *config.FFmpegConfig) *ToolLocator {
	paths := defaultSearchPaths
	overrides := make(map[string]string)
	if cfg != nil {
		if len(cfg.SearchPaths) > 0 {
			paths = cfg.SearchPaths
		}
		if strings.TrimSpace(cfg.BinaryPath) != "" {
			overrides["ffmpeg"] = cfg.BinaryPath
		}
		if strings.TrimSpace(cfg.ProbePath) != "" {
			overrides["ffprobe"] = cfg.ProbePath
		}
	}
	return &ToolLocator{searchPaths: paths, overrides: overrides}
}

// Locate 返回工具绝对路径，找不到时返回错误
func (l *ToolLocator) Locate(name string) (string, error) {
	if override, ok := l.overrides[name]; ok && override != "" {
		// 带路径分隔符的覆盖按具体文件校验；裸命令名只替换查找名，走目录加PATH解析
		if strings.ContainsRune(override, os.PathSeparator) {
			if isExecutable(override) {
				return override, nil
			}
			return "", fmt.Errorf("configured path for %s is not executable: %s", name, override)
		}
		name = override
	}

	for _, dir := range l.searchPaths {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if found, err := exec.LookPath(name); err == nil {
		return found, nil
	}
	return "", fmt.Errorf("%s not found in %v or PATH", name, l.searchPaths)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
