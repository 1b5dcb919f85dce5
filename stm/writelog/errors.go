package writelog

import "errors"

// ErrEntryTooLarge indicates a Push whose data exceeds MaxEntrySize. Record
// splits large regions itself; only direct Push callers can hit this.
var ErrEntryTooLarge = errors.New("writelog: entry exceeds MaxEntrySize")
