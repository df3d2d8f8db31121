package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrEmptyQuery      = goerr.New("query text is empty")
	ErrInvalidAgeGroup = goerr.New("invalid age group")
	ErrInvalidSex      = goerr.New("invalid sex")
)

type QueryID string

// NewQueryID generates a new unique QueryID
func NewQueryID() QueryID {
	return QueryID(uuid.New().String())
}

type AgeGroup string

const (
	AgeAdult      AgeGroup = "ADULT"
	AgeOlderAdult AgeGroup = "OLDER_ADULT"
	AgeChild      AgeGroup = "CHILD"
	AgeAll        AgeGroup = "ALL"
)

// Validate checks if the age group is valid
func (a AgeGroup) Validate() error {
	switch a {
	case AgeAdult, AgeOlderAdult, AgeChild, AgeAll:
		return nil
	default:
		return goerr.Wrap(ErrInvalidAgeGroup, "unknown value", goerr.V("age_group", a))
	}
}

type Sex string

const (
	SexAll    Sex = "ALL"
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
)

// Validate checks if the sex value is valid
func (s Sex) Validate() error {
	switch s {
	case SexAll, SexMale, SexFemale:
		return nil
	default:
		return goerr.Wrap(ErrInvalidSex, "unknown value", goerr.V("sex", s))
	}
}

// Query is a patient's trial-matching request. It is immutable once submitted.
type Query struct {
	ID       QueryID
	FreeText string
	AgeGroup AgeGroup
	Sex      Sex
}

// NewQuery builds a validated query from user input
func NewQuery(freeText string, age AgeGroup, sex Sex) (*Query, error) {
	q := &Query{
		ID:       NewQueryID(),
		FreeText: strings.TrimSpace(freeText),
		AgeGroup: age,
		Sex:      sex,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate checks the query before any network call is made
func (q *Query) Validate() error {
	if strings.TrimSpace(q.FreeText) == "" {
		return ErrEmptyQuery
	}
	if err := q.AgeGroup.Validate(); err != nil {
		return err
	}
	if err := q.Sex.Validate(); err != nil {
		return err
	}
	return nil
}
