package loader

import (
	"fmt"

	"golang.org/x/exp/slog"
)

func hexAttr(key string, value uint64) slog.Attr {
	return slog.String(key, fmt.Sprintf("0x%016x", value))
}
