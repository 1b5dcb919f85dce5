// Package task provides deferred callbacks and the ordered, optionally keyed
// collections the transaction runtime keeps them in.
//
// # Task
//
// A Task wraps a func(). The zero Task is unset; IsSet reports whether it
// holds a callable. Tasks are values: assigning one copies it, Take moves it
// out and leaves the source unset, Reset clears it. Calling an unset Task is
// a programming error.
//
// # Array
//
// Array is an intrusive doubly-linked list of tasks drawn from a slot pool.
// Forward traversal yields push order and backward traversal its exact
// reverse. Tasks may carry a key:
//
//	a.AddKeyed(lock, unlockTask)
//	a.DeleteKey(lock)             // removes the most recent task for lock
//	a.DeleteAllMatchingKeys(lock) // removes every task for lock
//
// RemoveEachForward and RemoveEachBackward drain the array, calling a func
// once per task. Tasks added while draining land in the (now empty) array
// and are not visited by that drain.
package task
