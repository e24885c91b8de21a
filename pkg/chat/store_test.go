package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/seerah/pkg/chat"
)

func TestStore(t *testing.T) {
	st := chat.NewStore(&fakePipeline{answer: "ok"})

	a := st.Create()
	b := st.Create()
	assert.Equal(t, 2, st.Len())

	got, ok := st.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, st.End(a.ID()))
	assert.False(t, st.End(a.ID()))
	_, ok = st.Get(a.ID())
	assert.False(t, ok)

	_, ok = st.Get(b.ID())
	assert.True(t, ok)
	assert.Equal(t, 1, st.Len())
}
