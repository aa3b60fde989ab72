package ui

import (
	"fmt"
	"strconv"
	"strings"

	"trainckpt/pkg/state"
)

const previewLen = 4

// DescribeValue summarises an optimizer-state value on one line. Long
// vectors are truncated to their first few elements.
func DescribeValue(v state.Value) string {
	switch v.Kind {
	case state.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case state.KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case state.KindString:
		return strconv.Quote(v.Str)
	case state.KindBool:
		return strconv.FormatBool(v.Bool)
	case state.KindFloats:
		parts := make([]string, 0, previewLen)
		for i := 0; i < len(v.Floats) && i < previewLen; i++ {
			parts = append(parts, strconv.FormatFloat(v.Floats[i], 'g', 4, 64))
		}
		return preview("floats", len(v.Floats), parts)
	case state.KindInts:
		parts := make([]string, 0, previewLen)
		for i := 0; i < len(v.Ints) && i < previewLen; i++ {
			parts = append(parts, strconv.FormatInt(v.Ints[i], 10))
		}
		return preview("ints", len(v.Ints), parts)
	case state.KindList:
		parts := make([]string, 0, previewLen)
		for i := 0; i < len(v.List) && i < previewLen; i++ {
			parts = append(parts, string(v.List[i].Kind))
		}
		return preview("list", len(v.List), parts)
	}
	return fmt.Sprintf("<%s>", v.Kind)
}

func preview(kind string, n int, parts []string) string {
	body := strings.Join(parts, " ")
	if n > len(parts) {
		body += " …"
	}
	return fmt.Sprintf("%s[%d] [%s]", kind, n, body)
}
