package dialect

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	Register(NewDialect("Registry_Test").Build())

	d, ok := Get("registry_test")
	require.True(t, ok)
	assert.Equal(t, "Registry_Test", d.Name)

	d, err := Lookup("REGISTRY_TEST")
	require.NoError(t, err)
	assert.NotNil(t, d)

	names := List()
	assert.Contains(t, names, "registry_test")
	assert.True(t, sort.StringsAreSorted(names))
}

func TestLookupErrors(t *testing.T) {
	_, err := Lookup("")
	assert.True(t, errors.Is(err, ErrDialectRequired))

	_, err = Lookup("does-not-exist")
	var unknown *UnknownDialectError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "does-not-exist", unknown.Name)
}
