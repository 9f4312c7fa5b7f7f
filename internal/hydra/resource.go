package hydra

import (
	"context"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

// Resource binds a Client to one collection and member type.
type Resource[T any] struct {
	client *Client
	name   string
}

// NewResource returns a typed view of the collection called name.
func NewResource[T any](c *Client, name string) *Resource[T] {
	return &Resource[T]{client: c, name: name}
}

// Name returns the collection name.
func (r *Resource[T]) Name() string {
	return r.name
}

// FindAll fetches one page of the collection.
func (r *Resource[T]) FindAll(ctx context.Context, page, perPage int, order domain.SortSpec) (*Collection[T], error) {
	var col Collection[T]
	if err := r.client.FindAll(ctx, r.name, page, perPage, order, &col); err != nil {
		return nil, err
	}
	if col.Member == nil {
		col.Member = []T{}
	}
	return &col, nil
}

// FindOne fetches the member id.
func (r *Resource[T]) FindOne(ctx context.Context, id string) (*T, error) {
	var v T
	if err := r.client.FindOne(ctx, r.name, id, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Post creates a member.
func (r *Resource[T]) Post(ctx context.Context, body T) (*T, error) {
	var v T
	if err := r.client.Post(ctx, r.name, body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Put replaces the member id with body.
func (r *Resource[T]) Put(ctx context.Context, id string, body T) (*T, error) {
	var v T
	if err := r.client.Put(ctx, r.name, id, body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete removes the member id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.name, id)
}
