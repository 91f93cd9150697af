package project

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/feria/core"
)

const MaxInternalGrade = 100

type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Course         string    `json:"course"`
	Advisors       string    `json:"advisors"`
	InternalGrade  *float64  `json:"internal_grade"` // 0-100, nil until the teacher grades it
	AssignedJudges []string  `json:"assigned_judges"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Grade returns the internal grade, 0 when absent.
func (p Project) Grade() float64 {
	if p.InternalGrade == nil {
		return 0
	}
	return *p.InternalGrade
}

// Students reads the description as a comma separated list of students / observations.
func (p Project) Students() []string {
	students := make([]string, 0)
	for _, s := range strings.Split(p.Description, ",") {
		if s = core.CleanString(s); s != "" {
			students = append(students, s)
		}
	}
	return students
}

func (p Project) HasJudge(judgeID string) bool {
	return core.ContainsString(p.AssignedJudges, judgeID)
}

// ParseGrade parses a raw internal grade input. Blank input means no grade.
func ParseGrade(raw string) (*float64, error) {
	raw = core.CleanString(raw)
	if raw == "" {
		return nil, nil
	}
	grade, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return nil, core.NewValidationError(
			errors.Wrapf(err, "parsing grade %q", raw),
			core.FieldError{Field: "internal_grade", Error: "must be a number"},
		)
	}
	if err = CheckGrade(grade); err != nil {
		return nil, err
	}
	return &grade, nil
}

// CheckGrade returns a ValidationError when grade is not a finite number within [0, MaxInternalGrade].
func CheckGrade(grade float64) error {
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		return core.NewValidationError(
			errors.Errorf("grade %v is not a finite number", grade),
			core.FieldError{Field: "internal_grade", Error: "must be a number"},
		)
	}
	if grade < 0 || grade > MaxInternalGrade {
		return core.NewValidationError(
			errors.Errorf("grade %v out of range", grade),
			core.FieldError{Field: "internal_grade", Error: "must be a number between 0 and 100"},
		)
	}
	return nil
}

// NewProject contains information needed to create a new Project.
type NewProject struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Course      string `json:"course" validate:"required"`
	Advisors    string `json:"advisors"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.Course = core.CleanString(np.Course)
	np.Advisors = core.CleanString(np.Advisors)
	return validate.Struct(np)
}

// UpdateProject defines what information may be provided to modify an existing Project.
// Empty strings keep the current values.
type UpdateProject struct {
	Name          string   `json:"name"`
	Description   *string  `json:"description"`
	Course        string   `json:"course"`
	Advisors      *string  `json:"advisors"`
	InternalGrade *float64 `json:"internal_grade" validate:"omitempty,grade"`
}

func (up *UpdateProject) Validate(ctx context.Context, origProj Project, validate *validator.Validate) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = origProj.Name
	}
	if course := core.CleanString(up.Course); course != "" {
		up.Course = course
	} else {
		up.Course = origProj.Course
	}
	if up.Description != nil {
		desc := core.CleanString(*up.Description)
		up.Description = &desc
	} else {
		up.Description = &origProj.Description
	}
	if up.Advisors != nil {
		adv := core.CleanString(*up.Advisors)
		up.Advisors = &adv
	} else {
		up.Advisors = &origProj.Advisors
	}
	if up.InternalGrade == nil {
		up.InternalGrade = origProj.InternalGrade
	}
	return validate.StructCtx(ctx, up)
}

type QueryFilter struct {
	Search string `query:"search"`
	Course string `query:"course"`
	Judge  string `query:"judge"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Course = core.CleanString(qf.Course)
	qf.Judge = core.CleanString(qf.Judge)
}
