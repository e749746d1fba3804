package probe

import "errors"

// ErrUnreachable is returned when the target answered neither a HEAD nor a
// GET request at the transport level. The audit stops here rather than
// spending browser startup time on a target that will fail every navigation.
var ErrUnreachable = errors.New("target is not reachable over HTTP")
