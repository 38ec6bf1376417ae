package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// graph construction
	GraphUnresolvedName    Code = 1001
	GraphUnsupportedBlock  Code = 1002
	GraphMalformedDAG      Code = 1003
	GraphUnboundLoopOutput Code = 1004
	GraphInvalid           Code = 1005

	// lowering
	LowerInvalidExecType Code = 2001
	LowerFailed          Code = 2002

	// cost estimation
	CostUnavailable Code = 2101

	// program files
	LoadRead    Code = 3001
	LoadDecode  Code = 3002
	LoadInvalid Code = 3003

	// plan output
	PlanCacheFailed  Code = 3101
	PlanExportFailed Code = 3102
)

var codeTitles = map[Code]string{
	UnknownCode:            "Unknown error",
	GraphUnresolvedName:    "Variable read before any binding",
	GraphUnsupportedBlock:  "Block kind cannot be represented in the graph",
	GraphMalformedDAG:      "Operator DAG is malformed",
	GraphUnboundLoopOutput: "Loop-updated variable has no binding after the body",
	GraphInvalid:           "Built graph violates its structural checks",
	LowerInvalidExecType:   "Operator cannot run on the requested backend",
	LowerFailed:            "Operator could not be lowered",
	CostUnavailable:        "Cost estimate unavailable",
	LoadRead:               "Program file could not be read",
	LoadDecode:             "Program file is not valid TOML",
	LoadInvalid:            "Program description is invalid",
	PlanCacheFailed:        "Plan cache could not be used",
	PlanExportFailed:       "Plan could not be exported",
}

func (c Code) String() string {
	return fmt.Sprintf("GDF%04d", uint16(c))
}

// Title is a short human description of c.
func (c Code) Title() string {
	if t, ok := codeTitles[c]; ok {
		return t
	}
	return codeTitles[UnknownCode]
}
