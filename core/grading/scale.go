package grading

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Policy names
const (
	PolicyRaw100       = "raw100"
	PolicySumToFive    = "sum5"
	PolicyIndependent5 = "independent5"
)

const (
	MaxFinalGrade = 5.0
	// MaxTotalPoints is the internal grade plus the jury average, both out of 100.
	MaxTotalPoints = 200.0
	// ConversionFactor maps total points onto the final grade scale.
	ConversionFactor = MaxFinalGrade / MaxTotalPoints
	// IndependentFactor maps a single 0-100 grade onto the 0-5 scale.
	IndependentFactor = MaxFinalGrade / 100
)

// Status tells which inputs of a result are still missing.
type Status string

const (
	StatusFinal           Status = "final"
	StatusMissingJury     Status = "missing_jury"
	StatusMissingInternal Status = "missing_internal"
	StatusPending         Status = "pending"
)

func resultStatus(internal float64, agg Aggregation) Status {
	hasInternal, hasJury := internal > 0, agg.Evaluated()
	switch {
	case hasInternal && hasJury:
		return StatusFinal
	case hasInternal:
		return StatusMissingJury
	case hasJury:
		return StatusMissingInternal
	}
	return StatusPending
}

// Scaled holds the grades of one project under a ScalingPolicy.
// FinalGrade is only meaningful when Pending is false.
type Scaled struct {
	Policy          string  `json:"policy"`
	ScaledInternal  float64 `json:"scaled_internal"`
	ScaledJury      float64 `json:"scaled_jury"`
	TotalPoints     float64 `json:"total_points"`
	FinalGrade      float64 `json:"final_grade"`
	Pending         bool    `json:"pending"`
	InternalPending bool    `json:"internal_pending"`
	JuryPending     bool    `json:"jury_pending"`
	Status          Status  `json:"status"`
}

// ScalingPolicy converts an internal grade and a jury aggregation into displayable grades.
// Implementations never fail: missing inputs surface as pending flags.
type ScalingPolicy interface {
	Name() string
	Scale(internal float64, agg Aggregation) Scaled
}

// Scale applies policy to one project's grades.
func Scale(policy ScalingPolicy, internal float64, agg Aggregation) Scaled {
	return policy.Scale(internal, agg)
}

// Raw100 reports both grades on their native 0-100 scale and never combines them.
type Raw100 struct{}

func (Raw100) Name() string { return PolicyRaw100 }

func (Raw100) Scale(internal float64, agg Aggregation) Scaled {
	return Scaled{
		Policy:          PolicyRaw100,
		ScaledInternal:  internal,
		ScaledJury:      agg.Average,
		TotalPoints:     internal + agg.Average,
		Pending:         true,
		InternalPending: internal <= 0,
		JuryPending:     !agg.Evaluated(),
		Status:          resultStatus(internal, agg),
	}
}

// SumToFive converts internal grade + jury average (max 200) onto a 0-5 final grade.
// The final grade is only computed once both an internal grade and an evaluation exist.
type SumToFive struct{}

func (SumToFive) Name() string { return PolicySumToFive }

func (SumToFive) Scale(internal float64, agg Aggregation) Scaled {
	s := Scaled{
		Policy:          PolicySumToFive,
		ScaledInternal:  internal,
		ScaledJury:      agg.Average,
		TotalPoints:     internal + agg.Average,
		Pending:         true,
		InternalPending: internal <= 0,
		JuryPending:     !agg.Evaluated(),
		Status:          resultStatus(internal, agg),
	}
	if !s.InternalPending && !s.JuryPending {
		s.FinalGrade = math.Min(s.TotalPoints*ConversionFactor, MaxFinalGrade)
		s.Pending = false
	}
	return s
}

// IndependentFive scales each grade on its own onto 0-5, rounded to a whole number.
// A raw grade of 0 cannot be told apart from a missing one and is reported as pending.
type IndependentFive struct{}

func (IndependentFive) Name() string { return PolicyIndependent5 }

func (IndependentFive) Scale(internal float64, agg Aggregation) Scaled {
	return Scaled{
		Policy:          PolicyIndependent5,
		ScaledInternal:  math.Round(internal * IndependentFactor),
		ScaledJury:      math.Round(agg.Average * IndependentFactor),
		TotalPoints:     internal + agg.Average,
		Pending:         true,
		InternalPending: internal == 0,
		JuryPending:     agg.Average == 0,
		Status:          resultStatus(internal, agg),
	}
}

var policies = map[string]ScalingPolicy{
	PolicyRaw100:       Raw100{},
	PolicySumToFive:    SumToFive{},
	PolicyIndependent5: IndependentFive{},
}

// PolicyByName looks up one of the named scaling policies.
func PolicyByName(name string) (ScalingPolicy, error) {
	if p, ok := policies[name]; ok {
		return p, nil
	}
	return nil, errors.Errorf("unknown scaling policy %q", name)
}

// PolicyNames lists the available policies, sorted.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
