package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// byteRange 解析后的单个字节区间，闭区间[Start, End]
type byteRange struct {
	Start int64
	End   int64
}

func (r byteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange 206响应的Content-Range头
func (r byteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

var (
	// errRangeMalformed 语法损坏的Range头。策略：当作没带Range，整文件200
	errRangeMalformed = errors.New("malformed range header")
	// errRangeUnsatisfiable 语法正确但无法满足，416
	errRangeUnsatisfiable = errors.New("unsatisfiable range")
)

// parseRange 解析Range头并对文件大小求值。
// 多个区间只取第一个；后缀区间bytes=-N在N≥size时按全文件区间满足。
func parseRange(header string, size int64) (byteRange, error) {
	const prefix = "bytes="
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, prefix) {
		return byteRange{}, errRangeMalformed
	}
	spec := strings.TrimPrefix(header, prefix)
	// 只服务逗号列表的第一个区间
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimSpace(spec)

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return byteRange{}, errRangeMalformed
	}
	startStr := strings.TrimSpace(spec[:dash])
	endStr := strings.TrimSpace(spec[dash+1:])

	// 后缀区间 bytes=-N：最后N字节
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return byteRange{}, errRangeMalformed
		}
		if n <= 0 {
			return byteRange{}, errRangeUnsatisfiable
		}
		if n >= size {
			// 比文件还长的后缀按整文件满足
			return byteRange{Start: 0, End: size - 1}, nil
		}
		return byteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, errRangeMalformed
	}
	if start >= size {
		return byteRange{}, errRangeUnsatisfiable
	}

	// 开区间 bytes=A-：A到文件尾
	if endStr == "" {
		return byteRange{Start: start, End: size - 1}, nil
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return byteRange{}, errRangeMalformed
	}
	if start > end {
		return byteRange{}, errRangeUnsatisfiable
	}
	// 终点越界时收敛到文件尾
	if end >= size {
		end = size - 1
	}
	return byteRange{Start: start, End: end}, nil
}
