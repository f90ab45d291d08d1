package selection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

func TestSet_ZeroValue(t *testing.T) {
	var s Set
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("a"))
	assert.Empty(t, s.Names())
}

func TestSet_Basics(t *testing.T) {
	s := New("b", "a", "b")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("a"))
	assert.Equal(t, []string{"a", "b"}, s.Names())

	c := s.Clone()
	assert.True(t, c.Equal(s))

	c.names["z"] = struct{}{}
	assert.False(t, s.Contains("z"), "clone must be independent")
	assert.False(t, c.Equal(s))
	assert.False(t, New("a", "x").Equal(New("a", "b")))

	cleared := s.Clear()
	assert.Equal(t, 0, cleared.Len())
	assert.Equal(t, 2, s.Len())
}

func TestSet_JSON(t *testing.T) {
	data, err := json.Marshal(New("b", "a"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	var s Set
	require.NoError(t, json.Unmarshal([]byte(`["x","y"]`), &s))
	assert.Equal(t, []string{"x", "y"}, s.Names())

	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &s))
}

// ---------------------------------------------------------------------------
// Chart
// ---------------------------------------------------------------------------

func TestParseChart(t *testing.T) {
	c, err := ParseChart("pool")
	require.NoError(t, err)
	assert.Equal(t, ChartPool, c)

	c, err = ParseChart("shortlist")
	require.NoError(t, err)
	assert.Equal(t, ChartShortlist, c)

	_, err = ParseChart("sidebar")
	assert.ErrorContains(t, err, "invalid chart")
}

func TestChart_Opposite(t *testing.T) {
	assert.Equal(t, ChartShortlist, ChartPool.Opposite())
	assert.Equal(t, ChartPool, ChartShortlist.Opposite())
	assert.Equal(t, ChartNone, ChartNone.Opposite())
}

// ---------------------------------------------------------------------------
// Transition
// ---------------------------------------------------------------------------

func TestTransition_PoolClickAdds(t *testing.T) {
	start := New()

	next, out := Transition(start, Click{EntityID: "E", Origin: ChartPool})
	assert.Equal(t, OutcomeAdded, out)
	assert.True(t, out.Changed())
	assert.True(t, next.Contains("E"))
	assert.False(t, start.Contains("E"), "input set is not mutated")
}

func TestTransition_RoundTrip(t *testing.T) {
	s, _ := Transition(New(), Click{EntityID: "E", Origin: ChartPool})
	require.True(t, s.Contains("E"))

	s, out := Transition(s, Click{EntityID: "E", Origin: ChartShortlist})
	assert.Equal(t, OutcomeRemoved, out)
	assert.False(t, s.Contains("E"))
}

func TestTransition_Idempotent(t *testing.T) {
	s := New("E")

	next, out := Transition(s, Click{EntityID: "E", Origin: ChartPool})
	assert.Equal(t, OutcomeUnchanged, out)
	assert.False(t, out.Changed())
	assert.True(t, next.Equal(s))

	next, out = Transition(New(), Click{EntityID: "E", Origin: ChartShortlist})
	assert.Equal(t, OutcomeUnchanged, out)
	assert.Equal(t, 0, next.Len())
}

func TestTransition_Ignored(t *testing.T) {
	s := New("A")

	for _, c := range []Click{
		{EntityID: "B", Origin: ChartNone},
		{EntityID: "B", Origin: Chart("legend")},
		{EntityID: "", Origin: ChartPool},
	} {
		next, out := Transition(s, c)
		assert.Equal(t, OutcomeIgnored, out, "%+v", c)
		assert.True(t, next.Equal(s))
	}
}

func TestCheckSession(t *testing.T) {
	assert.ErrorIs(t, CheckSession(""), ErrInvalidSession)
	assert.NoError(t, CheckSession("abc"))
}
