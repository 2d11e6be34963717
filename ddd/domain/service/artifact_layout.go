package service

import (
	"fmt"
	"path"
)

// 派生产物目录布局，相对媒体存储根目录。
// 每个条目的产物独占一个目录，清理重建时不会波及其他条目。

func artifactDir(itemUUID string) string {
	return path.Join("derived", itemUUID)
}

func posterRelPath(itemUUID string) string {
	return path.Join(artifactDir(itemUUID), "poster.jpg")
}

func streamRelPath(itemUUID string) string {
	return path.Join(artifactDir(itemUUID), "stream.mp4")
}

func renditionDir(itemUUID string) string {
	return path.Join(artifactDir(itemUUID), "renditions")
}

func renditionRelPath(itemUUID, label string) string {
	return path.Join(renditionDir(itemUUID), fmt.Sprintf("%s.mp4", label))
}

func hlsDir(itemUUID string) string {
	return path.Join(artifactDir(itemUUID), "hls")
}

func hlsMasterRelPath(itemUUID string) string {
	return path.Join(hlsDir(itemUUID), "master.m3u8")
}
