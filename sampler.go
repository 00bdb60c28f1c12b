package hypertune

//////
// Sampler contracts.
//////

// Sampler proposes a value for one parameter, independently of any other
// parameter in the trial. Implementations receive the study (for trial
// history and direction) and the frozen record of the running trial.
//
// The returned value is in internal representation and must lie inside the
// distribution's domain.
//
// Implementation notes for custom samplers:
//   - Must be safe for use by concurrent studies only if shared; a sampler
//     used by a single study is driven sequentially
//   - Should honor an explicit seed so runs are reproducible
//   - Should fall back to a uniform draw while history is too small to
//     guide the search.
type Sampler interface {
	Sample(study *Study, trial FrozenTrial, name string, d Distribution) (float64, error)
}

// RelativeSampler proposes a joint assignment for a whole search space at
// once, before the objective runs. Model-guided strategies that exploit
// correlations between parameters (CMA-ES, Gaussian Process regression)
// implement this contract; so does grid search, whose unit of progress is
// the full Cartesian point rather than a single coordinate.
//
// The proposal is requested before the trial record is appended to storage,
// so an error return leaves the ledger untouched; the trial argument is a
// zero-valued running record kept for symmetry with Sampler.
//
// Parameters absent from the returned map fall through to the study's
// independent Sampler. Returning an empty map is therefore a valid way to
// decline (e.g. while warming up).
type RelativeSampler interface {
	SampleRelative(study *Study, trial FrozenTrial, space SearchSpace) (map[string]float64, error)
}
