package uuid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobID(t *testing.T) {
	t.Parallel()
	g := New()

	id := g.NewJobID()
	require.Regexp(t, `^job_[0-9a-f-]{36}$`, id)

	parsed, err := uuid.Parse(id[len("job_"):])
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())

	assert.NotEqual(t, id, g.NewJobID())
}
