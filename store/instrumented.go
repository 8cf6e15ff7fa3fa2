package store

import (
	"context"
	"time"
)

// Observer receives the latency of every store operation.
type Observer interface {
	ObserveStoreOp(operation string, took time.Duration, err error)
}

// Instrumented wraps a Table and reports each call to an Observer.
type Instrumented struct {
	Table
	observer Observer
}

func NewInstrumented(t Table, o Observer) *Instrumented {
	return &Instrumented{Table: t, observer: o}
}

func (i *Instrumented) observe(op string, started time.Time, err error) {
	i.observer.ObserveStoreOp(op, time.Since(started), err)
}

func (i *Instrumented) Put(ctx context.Context, item Item) error {
	started := time.Now()
	err := i.Table.Put(ctx, item)
	i.observe("put", started, err)
	return err
}

func (i *Instrumented) PutIfAbsent(ctx context.Context, item Item) error {
	started := time.Now()
	err := i.Table.PutIfAbsent(ctx, item)
	i.observe("put_if_absent", started, err)
	return err
}

func (i *Instrumented) TransactPut(ctx context.Context, writes []Write) error {
	started := time.Now()
	err := i.Table.TransactPut(ctx, writes)
	i.observe("transact_put", started, err)
	return err
}

func (i *Instrumented) Get(ctx context.Context, pk, sk string) (Item, error) {
	started := time.Now()
	item, err := i.Table.Get(ctx, pk, sk)
	i.observe("get", started, err)
	return item, err
}

func (i *Instrumented) Query(ctx context.Context, q Query) ([]Item, error) {
	started := time.Now()
	items, err := i.Table.Query(ctx, q)
	i.observe("query", started, err)
	return items, err
}
