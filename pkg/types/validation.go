package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const classNameTag = "classname"

// FUNCTIONAL DISCOVERY: Validator built once at package initialization; error
// fields are reported under their JSON names so they match the document keys
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation(classNameTag, classNameValidation)
	return v
}

// classNameValidation accepts names that map to a single file in the rosters directory.
func classNameValidation(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name != strings.TrimSpace(name) || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return false
		}
	}
	return true
}

// ValidateClassName checks that name can be used as a roster key.
func ValidateClassName(name string) error {
	if err := validate.Var(name, "required,max=100,"+classNameTag); err != nil {
		return ErrInvalidClassName
	}
	return nil
}

// ValidateStudentName checks a name supplied for a manually added student.
func ValidateStudentName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidStudentName
	}
	return nil
}

// ContainsDigit reports whether s has any Unicode decimal digit.
func ContainsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// studentDocument mirrors Student with pointer fields so missing keys can be detected.
type studentDocument struct {
	StudentNumber        *int    `json:"studentNumber" validate:"required,gt=0"`
	Name                 *string `json:"name" validate:"required"`
	IsPresent            *bool   `json:"isPresent" validate:"required"`
	TimesSinceLastPicked *int    `json:"timesSinceLastPicked" validate:"required,gte=0"`
}

// EncodeStudents serializes students as the persisted JSON array.
func EncodeStudents(students []Student) ([]byte, error) {
	if students == nil {
		students = []Student{}
	}
	return json.Marshal(students)
}

// DecodeStudents parses a persisted JSON array. Every object must carry all four
// fields; a JSON null decodes to an empty list.
func DecodeStudents(data []byte) ([]Student, error) {
	var docs []studentDocument
	if err := json.Unmarshal(bytes.TrimSpace(data), &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	students := make([]Student, 0, len(docs))
	for i := range docs {
		if err := validate.Struct(&docs[i]); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidDocument, i, err)
		}
		students = append(students, Student{
			StudentNumber:        *docs[i].StudentNumber,
			Name:                 *docs[i].Name,
			IsPresent:            *docs[i].IsPresent,
			TimesSinceLastPicked: *docs[i].TimesSinceLastPicked,
		})
	}
	return students, nil
}
