// Package picker draws students under the cooldown and lucky number rules.
package picker

import (
	"math/rand/v2"
	"sync"

	"rollcall/pkg/types"
)

// Random is the source of uniform choices. *rand.Rand satisfies it.
type Random interface {
	IntN(n int) int
}

// Outcome classifies the result of a draw.
type Outcome int

const (
	// Picked means a student was drawn.
	Picked Outcome = iota
	// NoEligible means every student is cooling down or holds the lucky number.
	NoEligible
	// NoStudents means the roster is empty.
	NoStudents
)

func (o Outcome) String() string {
	switch o {
	case Picked:
		return "picked"
	case NoEligible:
		return "no_eligible"
	case NoStudents:
		return "no_students"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome as its String form.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result reports a draw. Index is the picked student's position, or -1.
type Result struct {
	Outcome Outcome
	Index   int
	Student types.Student
}

// Picker draws random students
// TECHNICAL DISCOVERY: rand.Rand is not safe for concurrent use, so the picker
// guards its source with a mutex
type Picker struct {
	mu     sync.Mutex
	random Random
}

// New returns a picker backed by the runtime's random source.
func New() *Picker {
	return &Picker{random: defaultRandom{}}
}

// NewWithRandom returns a picker using r, for deterministic tests.
func NewWithRandom(r Random) *Picker {
	return &Picker{random: r}
}

type defaultRandom struct{}

func (defaultRandom) IntN(n int) int { return rand.IntN(n) }

func (p *Picker) intN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.random.IntN(n)
}

// Pick ages every cooldown, then draws one eligible student and starts its cooldown.
// students is modified in place.
func (p *Picker) Pick(students []types.Student, luckyNumber int) Result {
	if len(students) == 0 {
		return Result{Outcome: NoStudents, Index: -1}
	}

	for i := range students {
		if students[i].TimesSinceLastPicked > 0 {
			students[i].TimesSinceLastPicked--
		}
	}

	eligible := make([]int, 0, len(students))
	for i, s := range students {
		if s.Eligible(luckyNumber) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return Result{Outcome: NoEligible, Index: -1}
	}

	idx := eligible[p.intN(len(eligible))]
	students[idx].TimesSinceLastPicked = types.PickCooldown

	return Result{
		Outcome: Picked,
		Index:   idx,
		Student: students[idx],
	}
}

// Roll returns a uniform integer in [1, n]. n must be positive.
func (p *Picker) Roll(n int) int {
	return p.intN(n) + 1
}
