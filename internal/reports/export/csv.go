// Package export renders report rows as downloadable CSV text.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const csvBufferSize = 32 * 1024

// Serialize renders headers and rows as CSV. String values are quoted with
// embedded quotes doubled, numbers are written bare. Lines end in "\n" with
// no trailing newline after the last row.
func Serialize(headers []string, rows [][]any) string {
	var b strings.Builder
	// strings.Builder never fails to write.
	_ = Write(&b, headers, rows)
	return b.String()
}

// Write streams the same output as Serialize into w.
func Write(w io.Writer, headers []string, rows [][]any) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	if _, err := buf.WriteString(strings.Join(headers, ",")); err != nil {
		return err
	}
	for _, row := range rows {
		if err := buf.WriteByte('\n'); err != nil {
			return err
		}
		for i, field := range row {
			if i > 0 {
				if err := buf.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := buf.WriteString(renderField(field)); err != nil {
				return err
			}
		}
	}
	return buf.Flush()
}

func renderField(v any) string {
	switch val := v.(type) {
	case nil:
		return `""`
	case string:
		return quote(val)
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return formatFloat(float64(val))
	case float64:
		return formatFloat(val)
	case json.Number:
		if _, err := val.Float64(); err != nil {
			return quote(val.String())
		}
		return val.String()
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return quote(val.Format("2006-01-02"))
	case fmt.Stringer:
		return quote(val.String())
	default:
		return quote(fmt.Sprint(val))
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
