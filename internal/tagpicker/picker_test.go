package tagpicker

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilepacks.dev/internal/models"
)

func catalog(n int) []models.Tag {
	tags := make([]models.Tag, n)
	for i := range tags {
		tags[i] = models.Tag{ID: int64(i + 1), Name: fmt.Sprintf("tag-%d", i), Slug: fmt.Sprintf("tag-%d", i)}
	}
	return tags
}

// requirePartition checks that selected and remaining are a disjoint cover of the catalog
func requirePartition(t *testing.T, p Picker, all []models.Tag) {
	t.Helper()
	seen := make(map[int64]int)
	for _, tag := range p.Selected() {
		seen[tag.ID]++
	}
	for _, tag := range p.Remaining() {
		seen[tag.ID]++
	}
	require.Len(t, seen, len(all))
	for _, tag := range all {
		require.Equal(t, 1, seen[tag.ID], "tag %s", tag.Name)
	}
	require.LessOrEqual(t, len(p.Selected()), p.limit)
}

func TestSelect_MovesToEndOfSelection(t *testing.T) {
	all := catalog(5)
	p := New(all, 7)

	p, err := p.Select("tag-3")
	require.NoError(t, err)
	p, err = p.Select("tag-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"tag-3", "tag-1"}, p.SelectedNames())
	assert.Equal(t, []string{"tag-0", "tag-2", "tag-4"}, p.RemainingNames())
	requirePartition(t, p, all)
}

func TestSelect_DoesNotMutateReceiver(t *testing.T) {
	p := New(catalog(3), 7)
	next, err := p.Select("tag-0")
	require.NoError(t, err)

	assert.Empty(t, p.SelectedNames())
	assert.Len(t, p.RemainingNames(), 3)
	assert.Equal(t, []string{"tag-0"}, next.SelectedNames())
}

func TestSelect_Unavailable(t *testing.T) {
	p := New(catalog(3), 7)
	p, err := p.Select("tag-0")
	require.NoError(t, err)

	_, err = p.Select("tag-0")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = p.Select("missing")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDeselect_ReturnsToEndOfRemaining(t *testing.T) {
	all := catalog(5)
	p := New(all, 7)
	for _, name := range []string{"tag-4", "tag-0", "tag-2"} {
		var err error
		p, err = p.Select(name)
		require.NoError(t, err)
	}

	p, err := p.Deselect(1)
	require.NoError(t, err)

	assert.Equal(t, []string{"tag-4", "tag-2"}, p.SelectedNames())
	assert.Equal(t, []string{"tag-1", "tag-3", "tag-0"}, p.RemainingNames())
	requirePartition(t, p, all)
}

func TestDeselect_OutOfRange(t *testing.T) {
	p := New(catalog(2), 7)
	_, err := p.Deselect(0)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = p.Deselect(-1)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestCap_HidesPickerButAllowsRemoval(t *testing.T) {
	all := catalog(10)
	p := New(all, 7)
	for i := 0; i < 7; i++ {
		var err error
		p, err = p.Select(fmt.Sprintf("tag-%d", i))
		require.NoError(t, err)
	}

	assert.True(t, p.Full())
	assert.Empty(t, p.Available())
	assert.Len(t, p.Remaining(), 3)

	_, err := p.Select("tag-8")
	assert.ErrorIs(t, err, ErrFull)

	for len(p.SelectedNames()) > 0 {
		p, err = p.Deselect(0)
		require.NoError(t, err)
		assert.False(t, p.Full())
	}
	assert.Len(t, p.Available(), 10)
	requirePartition(t, p, all)
}

func TestRandomWalk_KeepsPartition(t *testing.T) {
	all := catalog(12)
	p := New(all, 7)
	rng := rand.New(rand.NewPCG(1, 2))

	for step := 0; step < 500; step++ {
		before := p.SelectedNames()
		if avail := p.Available(); len(avail) > 0 && rng.IntN(2) == 0 {
			pick := avail[rng.IntN(len(avail))].Name
			next, err := p.Select(pick)
			require.NoError(t, err)
			require.Equal(t, append(before, pick), next.SelectedNames())
			require.NotContains(t, next.RemainingNames(), pick)
			p = next
		} else if len(before) > 0 {
			i := rng.IntN(len(before))
			next, err := p.Deselect(i)
			require.NoError(t, err)
			want := append(append([]string{}, before[:i]...), before[i+1:]...)
			require.Equal(t, want, next.SelectedNames())
			remaining := next.RemainingNames()
			require.Equal(t, before[i], remaining[len(remaining)-1])
			p = next
		}
		requirePartition(t, p, all)
	}
}

func TestRestore(t *testing.T) {
	all := catalog(4)

	t.Run("round trips posted state", func(t *testing.T) {
		p := Restore(all, []string{"tag-2"}, []string{"tag-3", "tag-0", "tag-1"}, 7)
		assert.Equal(t, []string{"tag-2"}, p.SelectedNames())
		assert.Equal(t, []string{"tag-3", "tag-0", "tag-1"}, p.RemainingNames())
	})

	t.Run("stale pool falls back to catalog order", func(t *testing.T) {
		p := Restore(all, []string{"tag-2", "gone"}, []string{"tag-3"}, 7)
		assert.Equal(t, []string{"tag-2"}, p.SelectedNames())
		assert.Equal(t, []string{"tag-0", "tag-1", "tag-3"}, p.RemainingNames())
		requirePartition(t, p, all)
	})

	t.Run("drops duplicates and respects the limit", func(t *testing.T) {
		p := Restore(all, []string{"tag-0", "tag-0", "tag-1", "tag-2"}, nil, 2)
		assert.Equal(t, []string{"tag-0", "tag-1"}, p.SelectedNames())
		assert.True(t, p.Full())
		requirePartition(t, p, all)
	})
}
