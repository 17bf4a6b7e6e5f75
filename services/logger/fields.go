package logsvc

import (
	"fmt"

	"github.com/morris0411/ManavisGradesApp/core"
)

// entry is a log call split into its parts.
// args are read as: error | map[string]interface{} extras | core.UserRef | "key", value pairs.
type entry struct {
	err    error
	extras map[string]interface{}
	user   *core.UserRef
}

func parseArgs(args []interface{}) entry {
	e := entry{extras: make(map[string]interface{})}
	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case core.UserRef:
			if e.user == nil {
				usr := arg
				e.user = &usr
			}
		case error:
			if e.err == nil {
				e.err = arg
			}
		case map[string]interface{}:
			for k, v := range arg {
				e.extras[k] = v
			}
		case string:
			if i+1 >= len(args) {
				e.extras[fmt.Sprintf("arg%d", i)] = arg
				continue
			}
			i++
			e.extras[arg] = args[i]
			if err, ok := args[i].(error); ok && e.err == nil {
				e.err = err
			}
		default:
			e.extras[fmt.Sprintf("arg%d", i)] = arg
		}
	}
	return e
}
