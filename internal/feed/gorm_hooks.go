package feed

import (
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

// RegisterCallbacks hooks the bus into a GORM handle so every committed
// create/update/delete publishes a change event for its table. This is the
// in-process stand-in for the store's row-level change feed: mutations made
// through any repository on this handle surface on the bus without the
// mutating code knowing about it.
func RegisterCallbacks(db *gorm.DB, bus *Bus) error {
	if err := db.Callback().Create().After("gorm:create").Register("feed:after_create", publishHook(bus, ActionInsert)); err != nil {
		return fmt.Errorf("register create callback: %w", err)
	}
	if err := db.Callback().Update().After("gorm:update").Register("feed:after_update", publishHook(bus, ActionUpdate)); err != nil {
		return fmt.Errorf("register update callback: %w", err)
	}
	if err := db.Callback().Delete().After("gorm:delete").Register("feed:after_delete", publishHook(bus, ActionDelete)); err != nil {
		return fmt.Errorf("register delete callback: %w", err)
	}
	return nil
}

// publishHook emits one event per affected statement. Failed statements and
// no-op updates (zero rows) publish nothing. Statements running under a
// Transact context are buffered instead of published, so a rollback never
// leaks events for rows that were undone.
func publishHook(bus *Bus, action Action) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil || tx.Statement.Table == "" {
			return
		}
		if action != ActionInsert && tx.RowsAffected == 0 {
			return
		}
		ev := Event{
			Table:  tx.Statement.Table,
			Action: action,
			RowID:  statementRowID(tx),
		}
		if buf := bufferFrom(tx.Statement.Context); buf != nil {
			buf.add(bus, ev)
			return
		}
		bus.Publish(ev)
	}
}

// statementRowID extracts the primary key of the written model when it is
// recoverable from the statement (single struct dest with a populated
// primary field). Batch writes and condition-only statements yield "".
func statementRowID(tx *gorm.DB) string {
	sch := tx.Statement.Schema
	if sch == nil || sch.PrioritizedPrimaryField == nil {
		return ""
	}
	rv := tx.Statement.ReflectValue
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return ""
	}
	v, zero := sch.PrioritizedPrimaryField.ValueOf(tx.Statement.Context, rv)
	if zero {
		return ""
	}
	return fmt.Sprint(v)
}
