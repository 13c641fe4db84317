package types

// NoLuckyNumber marks a session without a rolled lucky number.
const NoLuckyNumber = -1

// PickCooldown is the number of picker rounds a freshly picked student sits out.
const PickCooldown = 3

// Student is one entry of a class roster.
// FUNCTIONAL DISCOVERY: JSON keys are the persisted document format; decoding is
// case-insensitive so PascalCase documents written by older clients still load
type Student struct {
	StudentNumber        int    `json:"studentNumber"`
	Name                 string `json:"name"`
	IsPresent            bool   `json:"isPresent"`
	TimesSinceLastPicked int    `json:"timesSinceLastPicked"`
}

// Eligible reports whether the student may be drawn by the picker.
func (s Student) Eligible(luckyNumber int) bool {
	if s.TimesSinceLastPicked != 0 {
		return false
	}
	return luckyNumber == NoLuckyNumber || s.StudentNumber != luckyNumber
}

// Roster is a named, ordered class list. ClassName doubles as the storage key.
type Roster struct {
	ClassName string    `json:"class_name"`
	Students  []Student `json:"students"`
}

// NewRoster returns an empty roster for className.
func NewRoster(className string) *Roster {
	return &Roster{
		ClassName: className,
		Students:  []Student{},
	}
}

// Len returns the number of students.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Students)
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (r *Roster) Clone() *Roster {
	if r == nil {
		return nil
	}
	students := make([]Student, len(r.Students))
	copy(students, r.Students)
	return &Roster{
		ClassName: r.ClassName,
		Students:  students,
	}
}

// IndexOf returns the position of the student with the given number, or -1.
func (r *Roster) IndexOf(studentNumber int) int {
	for i, s := range r.Students {
		if s.StudentNumber == studentNumber {
			return i
		}
	}
	return -1
}

// Renumber re-derives StudentNumber = index+1 for every student.
func (r *Roster) Renumber() {
	for i := range r.Students {
		r.Students[i].StudentNumber = i + 1
	}
}
