package picker

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/pkg/types"
)

// fixedRandom always returns the same offset, clamped to n.
type fixedRandom int

func (f fixedRandom) IntN(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

func roster(n int) []types.Student {
	students := make([]types.Student, n)
	for i := range students {
		students[i] = types.Student{StudentNumber: i + 1, Name: string(rune('A' + i)), IsPresent: true}
	}
	return students
}

func seeded() *Picker {
	return NewWithRandom(rand.New(rand.NewPCG(1, 2)))
}

func TestPick_EmptyRoster(t *testing.T) {
	res := New().Pick(nil, types.NoLuckyNumber)
	assert.Equal(t, NoStudents, res.Outcome)
	assert.Equal(t, -1, res.Index)
}

func TestPick_SetsCooldown(t *testing.T) {
	students := roster(3)
	res := NewWithRandom(fixedRandom(1)).Pick(students, types.NoLuckyNumber)

	require.Equal(t, Picked, res.Outcome)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, "B", res.Student.Name)
	assert.Equal(t, types.PickCooldown, students[1].TimesSinceLastPicked)
	assert.Equal(t, types.PickCooldown, res.Student.TimesSinceLastPicked)
}

func TestPick_DecrementsAllCooldownsFirst(t *testing.T) {
	students := roster(3)
	students[0].TimesSinceLastPicked = 2
	students[1].TimesSinceLastPicked = 1
	students[2].TimesSinceLastPicked = 3

	res := NewWithRandom(fixedRandom(0)).Pick(students, types.NoLuckyNumber)

	// B reached zero this round and is the only eligible student
	require.Equal(t, Picked, res.Outcome)
	assert.Equal(t, "B", res.Student.Name)
	assert.Equal(t, 1, students[0].TimesSinceLastPicked)
	assert.Equal(t, 3, students[1].TimesSinceLastPicked)
	assert.Equal(t, 2, students[2].TimesSinceLastPicked)
}

func TestPick_NoEligibleOnlyDecrements(t *testing.T) {
	students := roster(2)
	students[0].TimesSinceLastPicked = 3
	students[1].TimesSinceLastPicked = 2

	res := seeded().Pick(students, types.NoLuckyNumber)

	assert.Equal(t, NoEligible, res.Outcome)
	assert.Equal(t, -1, res.Index)
	assert.Equal(t, 2, students[0].TimesSinceLastPicked)
	assert.Equal(t, 1, students[1].TimesSinceLastPicked)
}

func TestPick_NeverPicksLuckyNumber(t *testing.T) {
	p := seeded()
	for i := 0; i < 200; i++ {
		students := roster(4)
		res := p.Pick(students, 3)
		require.Equal(t, Picked, res.Outcome)
		assert.NotEqual(t, 3, res.Student.StudentNumber)
	}
}

func TestPick_OnlyLuckyStudentLeft(t *testing.T) {
	students := roster(1)
	res := seeded().Pick(students, 1)
	assert.Equal(t, NoEligible, res.Outcome)
	assert.Equal(t, 0, students[0].TimesSinceLastPicked)
}

func TestPick_OutOfRangeLuckyNumberIgnored(t *testing.T) {
	students := roster(2)
	res := NewWithRandom(fixedRandom(1)).Pick(students, 7)
	require.Equal(t, Picked, res.Outcome)
	assert.Equal(t, 2, res.Student.StudentNumber)
}

func TestPick_NeverPicksCoolingStudent(t *testing.T) {
	p := seeded()
	students := roster(5)
	for round := 0; round < 500; round++ {
		before := make([]int, len(students))
		for i, s := range students {
			before[i] = s.TimesSinceLastPicked
		}
		res := p.Pick(students, types.NoLuckyNumber)
		if res.Outcome != Picked {
			continue
		}
		// eligible after this round's decrement means at most 1 before it
		assert.LessOrEqual(t, before[res.Index], 1, "round %d", round)
	}
}

func TestPick_CooldownWindow(t *testing.T) {
	students := roster(5)
	p := NewWithRandom(fixedRandom(0))

	first := p.Pick(students, types.NoLuckyNumber)
	require.Equal(t, "A", first.Student.Name)

	// A sits out the next two draws and is drawable again on the third
	names := []string{}
	for round := 1; round <= 3; round++ {
		res := p.Pick(students, types.NoLuckyNumber)
		require.Equal(t, Picked, res.Outcome)
		names = append(names, res.Student.Name)
	}
	assert.Equal(t, []string{"B", "C", "A"}, names)
	assert.Equal(t, types.PickCooldown, students[0].TimesSinceLastPicked)
}

func TestPick_ExactWindowWithTwoStudents(t *testing.T) {
	// With two students and a fixed choice of the first eligible, A is picked,
	// then B, then nobody, then A again once its counter ages out
	students := roster(2)
	p := NewWithRandom(fixedRandom(0))

	outcomes := []string{}
	for i := 0; i < 5; i++ {
		res := p.Pick(students, types.NoLuckyNumber)
		if res.Outcome == Picked {
			outcomes = append(outcomes, res.Student.Name)
		} else {
			outcomes = append(outcomes, "-")
		}
	}
	assert.Equal(t, []string{"A", "B", "-", "A", "B"}, outcomes)
}

func TestPick_UniformOverEligible(t *testing.T) {
	p := seeded()
	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		res := p.Pick(roster(3), types.NoLuckyNumber)
		counts[res.Student.Name]++
	}
	for _, name := range []string{"A", "B", "C"} {
		assert.InDelta(t, 1000, counts[name], 150, name)
	}
}

func TestRoll_Range(t *testing.T) {
	p := seeded()
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		n := p.Roll(6)
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, 6)
		seen[n] = true
	}
	assert.Len(t, seen, 6)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "picked", Picked.String())
	assert.Equal(t, "no_eligible", NoEligible.String())
	assert.Equal(t, "no_students", NoStudents.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}
