// Package writelog records the original contents of memory about to be
// overwritten by transactional code, so the writes can be undone on abort.
//
// # Overview
//
// Every instrumented write pushes an Entry holding the logical address and a
// copy of the bytes it is about to replace. Entry data lives in a
// transaction-scoped alloc.BumpAllocator; entry headers live in fixed-size
// chunks. Rolling back replays the log backward, restoring each entry's
// original bytes to its logical address.
//
// # Coalescing
//
// A push whose address range immediately follows the previous entry's range,
// and whose data lands directly after the previous entry's data, is folded
// into that entry as long as the result stays within MaxEntrySize:
//
//	Push(0x1000, 4) + Push(0x1004, 4) → one 8-byte entry at 0x1000
//
// Num() therefore may be smaller than the number of pushes, while TotalSize()
// always equals the sum of pushed sizes.
//
// # Typed Undo Entries
//
// Memory holding Go pointers must not be copied around as raw bytes behind
// the garbage collector's back. Such writes are logged with PushUndo, which
// stores a restore func instead of bytes. Undo entries take part in ordering
// like any other entry but never coalesce.
//
// # Hashing
//
// Hash(n) hashes the current memory at the logical addresses of the first n
// entries. It changes when any logged byte changes and ignores bytes between
// entries. The transaction runtime uses it to detect Open sections that modify
// memory the transaction has already logged.
//
// # Thread Safety
//
// A WriteLog is owned by one transaction nest and is not thread-safe.
package writelog
