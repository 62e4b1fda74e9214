package tableservice

import "context"

// Table identifies the table a lifecycle callback was fired for.
type Table interface {
	TableName() string
	IDColumn() string
}

// Operation names the mutation that triggered an on-save callback.
type Operation string

const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// SaveEvent is handed to every on-save callback, for all three mutations alike.
// Data is nil for deletes.
type SaveEvent struct {
	Operation Operation
	ID        int64
	Data      Record
}

type (
	BeforeInsertFunc func(ctx context.Context, table Table, data Record) error
	AfterInsertFunc  func(ctx context.Context, table Table, id int64, data Record) error
	UpdateFunc       func(ctx context.Context, table Table, id int64, data Record) error
	DeleteFunc       func(ctx context.Context, table Table, id int64) error
	SaveFunc         func(ctx context.Context, table Table, event SaveEvent) error
)

// EventListener receives all six lifecycle callbacks of a service.
// A returned error aborts the mutation at that point and is handed to the caller unchanged.
// Before-insert and before-update callbacks receive the payload that is about to be stored and may amend it.
type EventListener interface {
	OnBeforeInsert(ctx context.Context, table Table, data Record) error
	OnInserted(ctx context.Context, table Table, id int64, data Record) error
	OnBeforeUpdate(ctx context.Context, table Table, id int64, data Record) error
	OnUpdated(ctx context.Context, table Table, id int64, data Record) error
	OnBeforeDelete(ctx context.Context, table Table, id int64) error
	OnDeleted(ctx context.Context, table Table, id int64) error
}

// NopEventListener implements EventListener with no-ops.
// Embed it to implement only the callbacks you care about.
type NopEventListener struct{}

func (NopEventListener) OnBeforeInsert(context.Context, Table, Record) error        { return nil }
func (NopEventListener) OnInserted(context.Context, Table, int64, Record) error     { return nil }
func (NopEventListener) OnBeforeUpdate(context.Context, Table, int64, Record) error { return nil }
func (NopEventListener) OnUpdated(context.Context, Table, int64, Record) error      { return nil }
func (NopEventListener) OnBeforeDelete(context.Context, Table, int64) error         { return nil }
func (NopEventListener) OnDeleted(context.Context, Table, int64) error              { return nil }

var _ EventListener = NopEventListener{}
