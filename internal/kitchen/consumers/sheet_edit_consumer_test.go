package consumers

import (
	"context"
	"errors"
	"testing"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/service"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEdits struct {
	got []messaging.SheetEditEvent
	err error
}

func (f *fakeEdits) HandleEdit(ctx context.Context, edit messaging.SheetEditEvent) (*service.EditResult, error) {
	f.got = append(f.got, edit)
	if f.err != nil {
		return nil, f.err
	}
	return &service.EditResult{Handled: service.ActionMirrored, Row: edit.Row}, nil
}

func newTestConsumer(edits EditHandler) *SheetEditConsumer {
	return &SheetEditConsumer{edits: edits, logger: logger.Nop()}
}

func mustEvent(t *testing.T, data interface{}) *messaging.Event {
	t.Helper()
	event, err := messaging.NewEvent(messaging.EventSheetEditReceived, "apps-script", "corr-1", data)
	require.NoError(t, err)
	return event
}

func TestHandleSheetEdit(t *testing.T) {
	edits := &fakeEdits{}
	c := newTestConsumer(edits)

	edit := messaging.SheetEditEvent{Sheet: "Production", Row: 4, Column: 2, Value: "Gummies-D9"}
	err := c.handleSheetEdit(context.Background(), mustEvent(t, edit))

	require.NoError(t, err)
	require.Len(t, edits.got, 1)
	assert.Equal(t, edit, edits.got[0])
}

func TestHandleSheetEdit_InvalidPayloadIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
	}{
		{"not an edit", []string{"oops"}},
		{"missing sheet", messaging.SheetEditEvent{Row: 2, Column: 1}},
		{"missing row", messaging.SheetEditEvent{Sheet: "Production", Column: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edits := &fakeEdits{}
			err := newTestConsumer(edits).handleSheetEdit(context.Background(), mustEvent(t, tt.data))

			require.Error(t, err)
			assert.True(t, messaging.IsPermanent(err))
			assert.Empty(t, edits.got)
		})
	}
}

func TestHandleSheetEdit_FailureIsRetried(t *testing.T) {
	boom := errors.New("lock busy")
	c := newTestConsumer(&fakeEdits{err: boom})

	err := c.handleSheetEdit(context.Background(), mustEvent(t, messaging.SheetEditEvent{Sheet: "Inventory", Row: 3, Column: 2, Value: "5"}))

	require.ErrorIs(t, err, boom)
	assert.False(t, messaging.IsPermanent(err))
}
