// Package kvstore defines a minimal, backend-agnostic key-value contract.
// Callers program against Store[K, V] and plug in any backend without
// changing call sites.
//
// Components:
//   - Getter / Setter: single-key read and replace capabilities. Store is both.
//   - memory: concurrency-safe in-process reference backend (RWMutex + map).
//   - bigcache: off-heap in-process byte backend.
//   - typed: adapter exposing Store[K, V] for arbitrary K and V over a
//     Store[[]byte, []byte], translating through a deterministic Codec.
//   - codec: Binary (little-endian, length-prefixed) and other deterministic codecs.
//
// Absence is a first-class outcome, (zero, false, nil), never an error.
// Errors are *Error values wrapping their cause; use errors.Is / errors.As.
//
// Every operation is synchronous under a context.Context. Task, GetAsync and
// SetAsync give an explicit handle on a pending result:
//
//	t := kvstore.GetAsync(ctx, store, "user:1")
//	res, err := t.Await(ctx) // res.Found, res.Value
//
// Example:
//
//	inner := memory.NewBytes()
//	users := typed.Must[uuid.UUID, User](inner)
//	_, _, _ = users.Set(ctx, id, User{Name: "Ada"})
//	u, ok, err := users.Get(ctx, id)
package kvstore
