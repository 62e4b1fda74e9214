package sqlengine

import (
	"context"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

// AddEventListener registers all six callbacks of l, each appended after the already registered ones.
func (s *Service) AddEventListener(l tableservice.EventListener) {
	s.onBeforeInsert = append(s.onBeforeInsert, l.OnBeforeInsert)
	s.onInserted = append(s.onInserted, l.OnInserted)
	s.onBeforeUpdate = append(s.onBeforeUpdate, l.OnBeforeUpdate)
	s.onUpdated = append(s.onUpdated, l.OnUpdated)
	s.onBeforeDelete = append(s.onBeforeDelete, l.OnBeforeDelete)
	s.onDeleted = append(s.onDeleted, l.OnDeleted)
}

func (s *Service) OnBeforeInsert(fn tableservice.BeforeInsertFunc) {
	s.onBeforeInsert = append(s.onBeforeInsert, fn)
}

func (s *Service) OnInserted(fn tableservice.AfterInsertFunc) {
	s.onInserted = append(s.onInserted, fn)
}

func (s *Service) OnBeforeUpdate(fn tableservice.UpdateFunc) {
	s.onBeforeUpdate = append(s.onBeforeUpdate, fn)
}

func (s *Service) OnUpdated(fn tableservice.UpdateFunc) {
	s.onUpdated = append(s.onUpdated, fn)
}

func (s *Service) OnBeforeDelete(fn tableservice.DeleteFunc) {
	s.onBeforeDelete = append(s.onBeforeDelete, fn)
}

func (s *Service) OnDeleted(fn tableservice.DeleteFunc) {
	s.onDeleted = append(s.onDeleted, fn)
}

// OnSave registers a callback fired after every successful insert, update and delete.
// It runs after the buffer-clearing callback and all callbacks registered before it.
func (s *Service) OnSave(fn tableservice.SaveFunc) {
	s.onSave = append(s.onSave, fn)
}

// Callbacks run strictly in registration order; the first error stops the dispatch.

func (s *Service) dispatchBeforeInsert(ctx context.Context, data tableservice.Record) error {
	for _, fn := range s.onBeforeInsert {
		if err := fn(ctx, s, data); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) dispatchInserted(ctx context.Context, id int64, data tableservice.Record) error {
	for _, fn := range s.onInserted {
		if err := fn(ctx, s, id, data); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) dispatchBeforeUpdate(ctx context.Context, id int64, data tableservice.Record) error {
	return dispatchUpdate(ctx, s, s.onBeforeUpdate, id, data)
}

func (s *Service) dispatchUpdated(ctx context.Context, id int64, data tableservice.Record) error {
	return dispatchUpdate(ctx, s, s.onUpdated, id, data)
}

func (s *Service) dispatchBeforeDelete(ctx context.Context, id int64) error {
	return dispatchDelete(ctx, s, s.onBeforeDelete, id)
}

func (s *Service) dispatchDeleted(ctx context.Context, id int64) error {
	return dispatchDelete(ctx, s, s.onDeleted, id)
}

func (s *Service) dispatchSave(ctx context.Context, event tableservice.SaveEvent) error {
	for _, fn := range s.onSave {
		if err := fn(ctx, s, event); err != nil {
			return err
		}
	}

	return nil
}

func dispatchUpdate(
	ctx context.Context,
	table tableservice.Table,
	callbacks []tableservice.UpdateFunc,
	id int64,
	data tableservice.Record,
) error {

	for _, fn := range callbacks {
		if err := fn(ctx, table, id, data); err != nil {
			return err
		}
	}

	return nil
}

func dispatchDelete(ctx context.Context, table tableservice.Table, callbacks []tableservice.DeleteFunc, id int64) error {
	for _, fn := range callbacks {
		if err := fn(ctx, table, id); err != nil {
			return err
		}
	}

	return nil
}
