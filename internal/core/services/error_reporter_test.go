package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingSink struct{}

func (panickingSink) Notify(error) { panic("sink down") }

func TestErrorReporter_FlushEmpty(t *testing.T) {
	sink := &recordingSink{}
	r := NewErrorReporter("cal-1", false, sink)

	assert.Nil(t, r.Flush())
	assert.Empty(t, sink.notified())
}

func TestErrorReporter_BatchesFailures(t *testing.T) {
	sink := &recordingSink{}
	r := NewErrorReporter("cal-1", true, sink)

	r.Record(timedEvent("a", 0), errors.New("bad title"))
	r.Record(timedEvent("b", 0), errors.New("bad times"))
	assert.Len(t, r.Failures(), 2)

	batch := r.Flush()
	require.NotNil(t, batch)
	assert.Equal(t, "cal-1", batch.CalendarID)
	assert.True(t, batch.Incremental)
	require.Len(t, batch.Failures, 2)
	assert.Equal(t, "Event a", batch.Failures[0].Title)
	assert.Contains(t, batch.Error(), "incremental sync of calendar cal-1: 2 event(s) failed")

	require.Len(t, sink.notified(), 1)
	assert.Empty(t, r.Failures())
	assert.Nil(t, r.Flush())
}

func TestErrorReporter_NilSink(t *testing.T) {
	r := NewErrorReporter("cal-1", false, nil)
	r.Record(timedEvent("a", 0), errors.New("x"))

	assert.NotNil(t, r.Flush())
}

func TestErrorReporter_SinkPanicIsContained(t *testing.T) {
	r := NewErrorReporter("cal-1", false, panickingSink{})
	r.Record(timedEvent("a", 0), errors.New("x"))

	assert.NotPanics(t, func() { r.Flush() })
}
