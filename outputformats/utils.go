// utils.go
package outputformats

import (
	"fmt"
	"strings"

	"github.com/credview/credview/types"
)

// flagsString renders a secure exec bitmask for the pipe-delimited and
// sqlite outputs
func flagsString(flags uint32) string {
	names := types.SecureExecNames(flags)
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// commitReason names why a record was cached
func commitReason(info *types.ExecInfo) string {
	if info.SecureExec != 0 {
		return "secureexec"
	}
	return "deleted_binary"
}

func cleanField(value string, defaultValue string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue
	}
	return value
}

// tidString renders the composed thread id as tgid:pid for readability
func tidString(tid uint64) string {
	return fmt.Sprintf("%d:%d", tid>>32, tid&0xffffffff)
}
