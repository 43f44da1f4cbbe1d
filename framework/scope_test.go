package framework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopePutAndGet(t *testing.T) {
	s := NewScope()
	require.NoError(t, s.Put("client", "value", nil))

	v, ok := s.Get("client")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestScopeRejectsDuplicateKey(t *testing.T) {
	s := NewScope()
	require.NoError(t, s.Put("client", 1, nil))
	err := s.Put("client", 2, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"client"`)
}

func TestScopeGetOrCreateCreatesOnce(t *testing.T) {
	s := NewScope()
	creations := 0
	create := func() (interface{}, func() error, error) {
		creations++
		return creations, nil, nil
	}

	v1, err := s.GetOrCreate("client", create)
	require.NoError(t, err)
	v2, err := s.GetOrCreate("client", create)
	require.NoError(t, err)

	assert.Equal(t, 1, creations)
	assert.Equal(t, v1, v2)
}

func TestScopeGetOrCreatePropagatesError(t *testing.T) {
	s := NewScope()
	_, err := s.GetOrCreate("client", func() (interface{}, func() error, error) {
		return nil, nil, errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	// A failed creation must not leave a cached entry behind.
	_, ok := s.Get("client")
	assert.False(t, ok)
}

func TestScopeCloseRunsTeardownsInReverseOrder(t *testing.T) {
	s := NewScope()
	var order []string
	closer := func(name string) func() error {
		return func() error {
			order = append(order, name)
			return nil
		}
	}
	require.NoError(t, s.Put("first", 1, closer("first")))
	require.NoError(t, s.Put("second", 2, closer("second")))
	require.NoError(t, s.Put("third", 3, closer("third")))

	require.NoError(t, s.Close())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestScopeCloseIsIdempotentAndAggregatesErrors(t *testing.T) {
	s := NewScope()
	closes := 0
	require.NoError(t, s.Put("a", 1, func() error {
		closes++
		return errors.New("a failed")
	}))
	require.NoError(t, s.Put("b", 2, func() error {
		closes++
		return errors.New("b failed")
	}))

	err := s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")
	assert.Equal(t, 2, closes)

	require.NoError(t, s.Close())
	assert.Equal(t, 2, closes, "teardown must run exactly once per resource")
}

func TestScopeRejectsUseAfterClose(t *testing.T) {
	s := NewScope()
	require.NoError(t, s.Close())

	assert.Error(t, s.Put("client", 1, nil))
	_, err := s.GetOrCreate("client", func() (interface{}, func() error, error) {
		return 1, nil, nil
	})
	assert.Error(t, err)
}
