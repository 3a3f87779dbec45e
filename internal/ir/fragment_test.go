package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dil/internal/constant"
)

var pool = constant.NewPool()

func constantInstr(id int, v int64) *Constant {
	c := &Constant{Value: pool.Int(v)}
	SetID(c, id)
	return c
}

// chain lists the ids reachable from the fragment entry.
func chain(f Fragment) []int {
	var ids []int
	for i := f.Entry; i != nil; i = i.Next() {
		ids = append(ids, i.GetID())
	}
	return ids
}

func exitID(f Fragment) int {
	if f.Exit == nil {
		return -1
	}
	return f.Exit.GetID()
}

func TestFragmentStates(t *testing.T) {
	var empty Fragment
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.IsOpen())
	assert.False(t, empty.IsClosed())

	f := Single(constantInstr(1, 1))
	assert.True(t, f.IsOpen())
	assert.False(t, f.IsEmpty())

	closed := f.Closed()
	assert.True(t, closed.IsClosed())
	assert.Same(t, f.Entry, closed.Entry)
}

func TestFragmentAppend(t *testing.T) {
	a := Single(constantInstr(1, 1))
	b := Single(constantInstr(2, 2)).Add(constantInstr(3, 3))

	assert.Equal(t, b, Fragment{}.Append(b))
	assert.Equal(t, a, a.Append(Fragment{}))

	ab := a.Append(b)
	assert.Equal(t, []int{1, 2, 3}, chain(ab))
	assert.Equal(t, 3, exitID(ab))
}

func TestClosedFragmentAbsorbsAppend(t *testing.T) {
	ret := &Return{}
	SetID(ret, 2)
	f := Single(constantInstr(1, 1)).Add(ret).Closed()
	g := Single(constantInstr(3, 3))

	assert.Equal(t, f, f.Append(g))
	assert.Equal(t, f, f.Add(constantInstr(4, 4)))
	assert.Nil(t, ret.Next())
	assert.Nil(t, g.Entry.Previous())
}

func TestFragmentAppendIsAssociative(t *testing.T) {
	build := func(closeMiddle bool) (Fragment, Fragment, Fragment) {
		a := Single(constantInstr(1, 1)).Add(constantInstr(2, 2))
		b := Single(constantInstr(3, 3))
		if closeMiddle {
			ret := &Return{}
			SetID(ret, 4)
			b = b.Add(ret).Closed()
		}
		c := Single(constantInstr(5, 5)).Add(constantInstr(6, 6))
		return a, b, c
	}

	for _, closeMiddle := range []bool{false, true} {
		a, b, c := build(closeMiddle)
		left := a.Append(b).Append(c)

		a, b, c = build(closeMiddle)
		right := a.Append(b.Append(c))

		assert.Equal(t, chain(left), chain(right))
		assert.Equal(t, exitID(left), exitID(right))
		assert.Equal(t, left.IsClosed(), right.IsClosed())
	}

	a, b, c := build(true)
	joined := a.Append(b).Append(c)
	require.True(t, joined.IsClosed())
	assert.Equal(t, []int{1, 2, 3, 4}, chain(joined))
}
