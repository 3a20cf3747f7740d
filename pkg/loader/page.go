// Package loader implements a retryable paged-loading controller. It drives
// initial and forward page fetches against a remote paginated source,
// reports outcomes through observable state signals, and suspends failed
// loads until a manual retry is signaled instead of returning an error.
package loader

import "context"

// Page is one page of items returned by a Source, together with the
// continuation keys for the adjacent pages. A nil key means no further page
// exists in that direction.
type Page[K comparable, T any] struct {
	Items  []T
	After  *K
	Before *K
}

// Source is the remote paginated source consumed by a Loader. Both methods
// may fail with a *ProtocolError (structured remote failure carrying a
// status code) or any other error (transport failure). The source identity
// is fixed when the Source is constructed.
type Source[K comparable, T any] interface {
	// FetchInitial fetches the first page.
	FetchInitial(ctx context.Context, size int) (Page[K, T], error)

	// FetchAfter fetches the page following the given continuation key.
	FetchAfter(ctx context.Context, key K, size int) (Page[K, T], error)
}

// InitialResult is the outcome of a successful LoadInitial.
type InitialResult[K comparable, T any] struct {
	Items  []T
	After  *K
	Before *K
}

// AfterResult is the outcome of a successful LoadAfter. A nil After means
// the end of the stream was reached.
type AfterResult[K comparable, T any] struct {
	Items []T
	After *K
}

// BeforeResult is the outcome of LoadBefore. Backward paging is
// unsupported, so it is always empty with a nil Before.
type BeforeResult[K comparable, T any] struct {
	Items  []T
	Before *K
}
