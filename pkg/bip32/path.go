package bip32

import (
	"fmt"
	"strconv"
	"strings"
)

// HardenedKeyStart 硬化索引起点 (2^31)
const HardenedKeyStart uint32 = 0x80000000

// ParsePath 解析派生路径为索引序列
// 支持格式: m/44'/60'/0'/0/0 或 m/44h/60h/0h/0/0，空路径与 "m" 表示主密钥
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "m" {
		return nil, nil
	}

	if !strings.HasPrefix(path, "m/") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	path = path[2:]

	segments := strings.Split(path, "/")
	indexes := make([]uint32, 0, len(segments))

	for _, segment := range segments {
		isHardened := false
		if strings.HasSuffix(segment, "'") || strings.HasSuffix(segment, "h") {
			isHardened = true
			segment = segment[:len(segment)-1]
		}

		val, err := strconv.ParseUint(segment, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: 无效的路径段 '%s'", ErrInvalidPath, segment)
		}
		index := uint32(val)

		if isHardened {
			if index >= HardenedKeyStart {
				return nil, fmt.Errorf("%w: 索引越界 '%s'", ErrInvalidPath, segment)
			}
			index += HardenedKeyStart
		}
		indexes = append(indexes, index)
	}

	return indexes, nil
}
