package service

import (
	"context"
	"fmt"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
)

// Actions reported by HandleEdit
const (
	ActionNone                 = ""
	ActionProductSelected      = "product_selected"
	ActionChannelSelected      = "channel_selected"
	ActionInventoryEdited      = "inventory_edited"
	ActionOrderProductSelected = "order_product_selected"
	ActionOrderStatusChanged   = "order_status_changed"
	ActionMirrored             = "mirrored"
)

// EditResult reports what an edit did
type EditResult struct {
	Handled string           `json:"handled"`
	Table   repository.Table `json:"table,omitempty"`
	Field   repository.Field `json:"field,omitempty"`
	Row     int              `json:"row"`
}

// HandleEdit applies one host cell edit: the value is mirrored into the
// store, then routed to the matching rule. Header rows, unknown sheets and
// untracked columns are ignored.
func (s *SheetService) HandleEdit(ctx context.Context, edit messaging.SheetEditEvent) (*EditResult, error) {
	result := &EditResult{Row: edit.Row}
	if edit.Row <= headerRow {
		return result, nil
	}

	table, field, ok := s.layout.FieldAt(edit.Sheet, edit.Column)
	if !ok {
		return result, nil
	}
	result.Table, result.Field = table, field

	log := s.logger.WithCell(edit.Sheet, edit.Row, edit.Column)

	err := s.locked(ctx, func(ctx context.Context) error {
		if err := s.store.SetCell(ctx, table, edit.Row, field, edit.Value); err != nil {
			return fmt.Errorf("mirror edit: %w", err)
		}
		result.Handled = ActionMirrored

		action, fn := s.route(table, field, edit)
		if fn == nil {
			return nil
		}
		result.Handled = action
		return fn(ctx)
	})
	if err != nil {
		log.Error().Err(err).Str("field", string(field)).Msg("edit failed")
		return nil, err
	}

	log.Debug().Str("handled", result.Handled).Msg("edit applied")
	return result, nil
}

func (s *SheetService) route(table repository.Table, field repository.Field, edit messaging.SheetEditEvent) (string, func(context.Context) error) {
	row := edit.Row
	switch table {
	case repository.TableProduction:
		switch field {
		case repository.FieldProduct:
			if edit.Value == "" {
				return ActionNone, nil
			}
			return ActionProductSelected, func(ctx context.Context) error { return s.productSelected(ctx, row) }
		case repository.FieldSelection1:
			// The second slot is only recorded.
			if edit.Value == "" {
				return ActionNone, nil
			}
			return ActionChannelSelected, func(ctx context.Context) error { return s.channelSelected(ctx, row, 1) }
		}
	case repository.TableInventory:
		if field == repository.FieldQuantity {
			return ActionInventoryEdited, func(ctx context.Context) error { return s.inventoryEdited(ctx, row) }
		}
	case repository.TableOrders:
		switch field {
		case repository.FieldProduct:
			if edit.Value == "" {
				return ActionNone, nil
			}
			return ActionOrderProductSelected, func(ctx context.Context) error { return s.orderProductSelected(ctx, row) }
		case repository.FieldStatus:
			if edit.Value != s.opts.CompleteStatus {
				return ActionNone, nil
			}
			return ActionOrderStatusChanged, func(ctx context.Context) error { return s.orderStatusChanged(ctx, row, edit.Value) }
		}
	}
	return ActionNone, nil
}
