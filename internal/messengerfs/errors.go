package messengerfs

import "errors"

// errBadHandle is returned when a call references a handleID that was
// never opened, or was already released.
var errBadHandle = errors.New("messengerfs: unknown or stale handle")
