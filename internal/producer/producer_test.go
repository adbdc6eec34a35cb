package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcov-go/grcov/internal/coverage"
)

type stubProducer struct{}

func (stubProducer) Produce(coverage.WorkItem, Config, Emit) error { return nil }

func TestRegisterAndNew(t *testing.T) {
	const kind = coverage.Kind(9999)

	assert.False(t, Registered(kind))

	Register(kind, func() Producer { return stubProducer{} })
	assert.True(t, Registered(kind))

	p, err := New(kind)
	require.NoError(t, err)
	assert.IsType(t, stubProducer{}, p)
}

func TestNew_UnregisteredKindErrors(t *testing.T) {
	_, err := New(coverage.Kind(-1))
	assert.Error(t, err)
}
