package lops

import (
	"fmt"
	"strings"
)

// ExecType is the backend an operator runs on.
type ExecType uint8

const (
	ExecCP    ExecType = iota // in-process, inside the control program
	ExecMR                    // distributed batch jobs
	ExecSpark                 // distributed in-memory
)

func (e ExecType) String() string {
	switch e {
	case ExecCP:
		return "CP"
	case ExecMR:
		return "MR"
	case ExecSpark:
		return "SPARK"
	default:
		return fmt.Sprintf("exec(%d)", e)
	}
}

// ExecTypes returns every backend.
func ExecTypes() []ExecType {
	return []ExecType{ExecCP, ExecMR, ExecSpark}
}

// ParseExecType accepts the names printed by String, case-insensitively.
func ParseExecType(s string) (ExecType, error) {
	for _, e := range ExecTypes() {
		if strings.EqualFold(e.String(), s) {
			return e, nil
		}
	}
	return ExecCP, fmt.Errorf("unknown exec type %q", s)
}

// ExecLocation is the phase of a batch job an operator runs in, or the
// control program for everything not lowered into a job.
type ExecLocation uint8

const (
	LocData ExecLocation = iota
	LocMap
	LocMapOrReduce
	LocReduce
	LocMapAndReduce
	LocControlProgram
)

func (l ExecLocation) String() string {
	switch l {
	case LocData:
		return "Data"
	case LocMap:
		return "Map"
	case LocMapOrReduce:
		return "MapOrReduce"
	case LocReduce:
		return "Reduce"
	case LocMapAndReduce:
		return "MapAndReduce"
	case LocControlProgram:
		return "ControlProgram"
	default:
		return fmt.Sprintf("loc(%d)", l)
	}
}

// JobType is a batch job template operators can be packed into.
type JobType uint8

const (
	JobGMR JobType = iota
	JobDataGen
	JobMMCJ
	JobMMRJ
	JobSort
	JobCombine
	JobGroupedAgg
	JobReblock

	jobTypeCount
)

var jobNames = [...]string{
	JobGMR:        "GMR",
	JobDataGen:    "DATAGEN",
	JobMMCJ:       "MMCJ",
	JobMMRJ:       "MMRJ",
	JobSort:       "SORT",
	JobCombine:    "COMBINE",
	JobGroupedAgg: "GROUPED_AGG",
	JobReblock:    "REBLOCK",
}

func (j JobType) String() string {
	if int(j) < len(jobNames) {
		return jobNames[j]
	}
	return fmt.Sprintf("job(%d)", j)
}

// JobSet is a set of job types. The zero value is empty: the operator is
// never embedded and forms a stage on its own.
type JobSet uint16

// Jobs builds a set from job types.
func Jobs(jobs ...JobType) JobSet {
	var s JobSet
	for _, j := range jobs {
		s = s.With(j)
	}
	return s
}

// AllJobs holds every job type; data operators fit anywhere.
const AllJobs JobSet = 1<<jobTypeCount - 1

func (s JobSet) With(j JobType) JobSet { return s | 1<<j }

func (s JobSet) Has(j JobType) bool { return s&(1<<j) != 0 }

func (s JobSet) IsEmpty() bool { return s == 0 }

// Intersect returns the job types s and o share.
func (s JobSet) Intersect(o JobSet) JobSet { return s & o }

// List returns the members in declaration order.
func (s JobSet) List() []JobType {
	var out []JobType
	for j := JobType(0); j < jobTypeCount; j++ {
		if s.Has(j) {
			out = append(out, j)
		}
	}
	return out
}

func (s JobSet) String() string {
	if s.IsEmpty() {
		return "-"
	}
	parts := make([]string, 0, jobTypeCount)
	for _, j := range s.List() {
		parts = append(parts, j.String())
	}
	return strings.Join(parts, "|")
}

// Type is the kind of a lowered operator.
type Type uint8

const (
	TypeData Type = iota
	TypeUnary
	TypeBinary
	TypeTernary
	TypeAggregate
	TypeTransform
	TypeRightIndex
	TypeMapMult
	TypeMMCJ
	TypeMMRJ
	TypeWeightedSigmoid
	TypeCombineUnary
	TypeSortKeys
	TypeGroupedAgg
	TypeDataGen
	TypeReBlock
	TypeCheckpoint
	TypeFunctionCall

	typeCount
)

var typeNames = [...]string{
	TypeData:            "data",
	TypeUnary:           "unary",
	TypeBinary:          "binary",
	TypeTernary:         "ternary",
	TypeAggregate:       "aggregate",
	TypeTransform:       "transform",
	TypeRightIndex:      "rightindex",
	TypeMapMult:         "mapmm",
	TypeMMCJ:            "cpmm",
	TypeMMRJ:            "rmm",
	TypeWeightedSigmoid: "redwsigmoid",
	TypeCombineUnary:    "combineunary",
	TypeSortKeys:        "sort",
	TypeGroupedAgg:      "groupedagg",
	TypeDataGen:         "datagen",
	TypeReBlock:         "rblk",
	TypeCheckpoint:      "chkpoint",
	TypeFunctionCall:    "fcall",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// Types returns every operator type.
func Types() []Type {
	out := make([]Type, 0, typeCount)
	for t := Type(0); t < typeCount; t++ {
		out = append(out, t)
	}
	return out
}
