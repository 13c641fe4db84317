// Package importer parses the "name,flag" attendance text format.
package importer

import (
	"strings"

	"rollcall/pkg/types"
)

const (
	// PresentFlag marks a present student.
	PresentFlag = "+"
	// AbsentFlag marks an absent student.
	AbsentFlag = "-"
)

// ParseText turns raw import text into numbered students
// FUNCTIONAL DISCOVERY: Malformed lines are dropped without error and do not consume a number.
// A line must split on commas into exactly two fields, the name must not contain a digit,
// and the flag must be exactly "+" or "-" once trimmed
func ParseText(raw string) []types.Student {
	students := []types.Student{}

	for _, line := range strings.Split(raw, "\n") {
		student, ok := parseLine(line)
		if !ok {
			continue
		}
		student.StudentNumber = len(students) + 1
		students = append(students, student)
	}

	return students
}

func parseLine(line string) (types.Student, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != 2 {
		return types.Student{}, false
	}

	name := strings.TrimSpace(fields[0])
	if types.ContainsDigit(name) {
		return types.Student{}, false
	}

	flag := strings.TrimSpace(fields[1])
	if flag != PresentFlag && flag != AbsentFlag {
		return types.Student{}, false
	}

	return types.Student{
		Name:      name,
		IsPresent: flag == PresentFlag,
	}, true
}

// ClassNameFromFile derives a class name from an import file path: the base name
// without its last extension.
func ClassNameFromFile(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
