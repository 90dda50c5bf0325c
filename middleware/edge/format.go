// utilitário pequeno para formatação consistente de valores numéricos em headers.

package edge

import (
	"strconv"
	"time"
)

func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }

// ceilSeconds arredonda para cima e nunca devolve menos que 1.
func ceilSeconds(d time.Duration) int64 {
	s := int64((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
