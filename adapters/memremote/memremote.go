package memremote

import (
	"context"
	"errors"
	"sync"

	"github.com/drillsoft/sectionflow"
)

// Client is an in-memory RemoteClient used in tests and local development. Failures can
// be injected per call type to exercise the engine's degradation paths, and calls are
// counted so tests can assert which reads were served from the cache.
type Client[Type any, P sectionflow.Ptr[Type]] struct {
	mu    sync.Mutex
	store map[string]*Type
	order []string

	FindAllErr error
	FindOneErr error
	CreateErr  error
	UpdateErr  error

	findAllCalls int
	findOneCalls int
	createCalls  int
	updateCalls  int
}

func New[Type any, P sectionflow.Ptr[Type]]() *Client[Type, P] {
	return &Client[Type, P]{
		store: make(map[string]*Type),
	}
}

// ErrNotFound is returned when the remote system holds no entity for the ID.
var ErrNotFound = errors.New("remote entity not found")

// Seed installs entities as already existing in the remote system.
func (c *Client[Type, P]) Seed(items ...*Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range items {
		id := P(item).EntityID()
		if _, ok := c.store[id]; !ok {
			c.order = append(c.order, id)
		}
		c.store[id] = item
	}
}

func (c *Client[Type, P]) FindAll(ctx context.Context, filters sectionflow.Filters, page sectionflow.Pagination) (sectionflow.ListResult[Type], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.findAllCalls++
	if c.FindAllErr != nil {
		return sectionflow.ListResult[Type]{}, c.FindAllErr
	}

	var items []*Type
	for _, id := range c.order {
		item := c.store[id]
		if plan, ok := filters["drillPlanId"]; ok && P(item).PlanID() != plan {
			continue
		}

		cp := *item
		items = append(items, &cp)
	}

	count := int64(len(items))
	if page.Offset > 0 {
		if page.Offset >= len(items) {
			items = nil
		} else {
			items = items[page.Offset:]
		}
	}
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}

	return sectionflow.ListResult[Type]{
		Items: items,
		Meta:  sectionflow.ListMeta{ItemCount: count},
	}, nil
}

func (c *Client[Type, P]) FindOne(ctx context.Context, id string) (*Type, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.findOneCalls++
	if c.FindOneErr != nil {
		return nil, c.FindOneErr
	}

	item, ok := c.store[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *item
	return &cp, nil
}

func (c *Client[Type, P]) Create(ctx context.Context, t *Type) (*Type, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.createCalls++
	if c.CreateErr != nil {
		return nil, c.CreateErr
	}

	id := P(t).EntityID()
	if _, ok := c.store[id]; !ok {
		c.order = append(c.order, id)
	}
	c.store[id] = t

	return t, nil
}

func (c *Client[Type, P]) Update(ctx context.Context, t *Type) (*Type, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.updateCalls++
	if c.UpdateErr != nil {
		return nil, c.UpdateErr
	}

	id := P(t).EntityID()
	if _, ok := c.store[id]; !ok {
		c.order = append(c.order, id)
	}
	c.store[id] = t

	return t, nil
}

// Get returns the remote copy of an entity, for test assertions.
func (c *Client[Type, P]) Get(id string) (*Type, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.store[id]
	if !ok {
		return nil, false
	}

	cp := *item
	return &cp, true
}

// Call counters, safe to read while the engine is running.

func (c *Client[Type, P]) FindAllCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.findAllCalls
}

func (c *Client[Type, P]) FindOneCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.findOneCalls
}

func (c *Client[Type, P]) CreateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.createCalls
}

func (c *Client[Type, P]) UpdateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.updateCalls
}
