package sectionflow

import "context"

// Filters narrows a remote listing by exact field match.
type Filters map[string]string

// Pagination is the page window for remote listings. A zero Limit means the remote
// default page size.
type Pagination struct {
	Offset int
	Limit  int
}

// ListMeta mirrors the remote listing envelope.
type ListMeta struct {
	ItemCount int64 `json:"itemCount"`
}

// ListResult is the remote listing envelope: the page of items plus the total count.
type ListResult[Type any] struct {
	Items []*Type  `json:"data"`
	Meta  ListMeta `json:"meta"`
}

// RemoteClient is the system-of-record collaborator for one entity type. Failures are
// retryable by the caller; the engine never retries internally. Transport concerns such
// as auth and timeouts belong to the implementation.
type RemoteClient[Type any] interface {
	FindAll(ctx context.Context, filters Filters, page Pagination) (ListResult[Type], error)
	FindOne(ctx context.Context, id string) (*Type, error)
	Create(ctx context.Context, t *Type) (*Type, error)
	Update(ctx context.Context, t *Type) (*Type, error)
}
