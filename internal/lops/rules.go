package lops

// rule is the batch-job metadata of one operator type. Operators lowered
// anywhere else run in the control program and carry no job metadata.
type rule struct {
	loc          ExecLocation
	compat       JobSet
	breaks       bool // may change partitioning or ordering alignment
	aligner      bool
	defines      bool // forces a new job
	intermediate bool // output only feeds the next job
}

var mrRules = map[Type]rule{
	TypeData:            {loc: LocData, compat: AllJobs},
	TypeUnary:           {loc: LocMapOrReduce, compat: Jobs(JobGMR, JobDataGen)},
	TypeBinary:          {loc: LocMapOrReduce, compat: Jobs(JobGMR, JobDataGen)},
	TypeTernary:         {loc: LocMapOrReduce, compat: Jobs(JobGMR, JobDataGen)},
	TypeAggregate:       {loc: LocReduce, compat: Jobs(JobGMR, JobDataGen)},
	TypeTransform:       {loc: LocMapOrReduce, compat: Jobs(JobGMR, JobDataGen), breaks: true},
	TypeRightIndex:      {loc: LocMapOrReduce, compat: Jobs(JobGMR, JobDataGen), breaks: true},
	TypeMapMult:         {loc: LocMap, compat: Jobs(JobGMR, JobDataGen)},
	TypeMMCJ:            {loc: LocMapAndReduce, compat: Jobs(JobMMCJ), breaks: true, defines: true, intermediate: true},
	TypeMMRJ:            {loc: LocMapAndReduce, compat: Jobs(JobMMRJ), breaks: true, defines: true},
	TypeWeightedSigmoid: {loc: LocReduce, compat: Jobs(JobGMR, JobDataGen), breaks: true},
	TypeCombineUnary:    {loc: LocMap, compat: Jobs(JobSort)},
	TypeSortKeys:        {loc: LocMapAndReduce, compat: Jobs(JobSort), breaks: true, defines: true},
	TypeGroupedAgg:      {loc: LocMapAndReduce, compat: Jobs(JobGroupedAgg), breaks: true, defines: true},
	TypeDataGen:         {loc: LocMap, compat: Jobs(JobDataGen), defines: true},
	TypeReBlock:         {loc: LocMapAndReduce, compat: Jobs(JobReblock), defines: true},
}

// pinned lists types that exist on one backend only.
var pinned = map[Type]ExecType{
	TypeCombineUnary: ExecMR,
	TypeCheckpoint:   ExecSpark,
	TypeFunctionCall: ExecCP,
}

// auxiliary lists the types Dedup hands out, at most one per producer.
var auxiliary = map[Type]bool{
	TypeCombineUnary: true,
	TypeCheckpoint:   true,
}

// cacheRule names the input slots an operator may hold in the distributed
// cache. Exclusive types cache at most one of them.
type cacheRule struct {
	slots     CacheInputs
	exclusive bool
}

var cacheRules = map[Type]cacheRule{
	TypeWeightedSigmoid: {slots: CacheU | CacheV},
	TypeMapMult:         {slots: CacheLeft | CacheRight, exclusive: true},
}

// Rule reports the batch-job metadata of t, if t can run in a batch job.
func Rule(t Type) (JobProps, ExecLocation, bool) {
	r, ok := mrRules[t]
	if !ok {
		return JobProps{}, LocControlProgram, false
	}
	return JobProps{
		Compat:               r.compat,
		BreaksAlignment:      r.breaks,
		Aligner:              r.aligner,
		DefinesJob:           r.defines,
		ProducesIntermediate: r.intermediate,
	}, r.loc, true
}
