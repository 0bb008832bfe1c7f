package datastructure

// StepProgress is the user's progress along one route step.
type StepProgress struct {
	step                 *RouteStep
	stepIndex            int
	distanceTraveled     float64
	currentIntersection  *Intersection
	upcomingIntersection *Intersection

	userDistanceToUpcomingIntersection    float64
	hasUserDistanceToUpcomingIntersection bool
}

func NewStepProgress(step *RouteStep, stepIndex int, distanceTraveled float64,
	current, upcoming *Intersection) *StepProgress {
	return &StepProgress{
		step:                 step,
		stepIndex:            stepIndex,
		distanceTraveled:     distanceTraveled,
		currentIntersection:  current,
		upcomingIntersection: upcoming,
	}
}

func (sp *StepProgress) Step() *RouteStep {
	return sp.step
}

func (sp *StepProgress) StepIndex() int {
	return sp.stepIndex
}

// DistanceTraveled. meter travelled inside the step
func (sp *StepProgress) DistanceTraveled() float64 {
	return sp.distanceTraveled
}

func (sp *StepProgress) CurrentIntersection() *Intersection {
	return sp.currentIntersection
}

func (sp *StepProgress) UpcomingIntersection() *Intersection {
	return sp.upcomingIntersection
}

func (sp *StepProgress) SetUserDistanceToUpcomingIntersection(d float64) *StepProgress {
	sp.userDistanceToUpcomingIntersection = d
	sp.hasUserDistanceToUpcomingIntersection = true
	return sp
}

// UserDistanceToUpcomingIntersection. ok is false when the distance is unknown.
func (sp *StepProgress) UserDistanceToUpcomingIntersection() (float64, bool) {
	return sp.userDistanceToUpcomingIntersection, sp.hasUserDistanceToUpcomingIntersection
}

type LegProgress struct {
	legIndex    int
	currentStep *StepProgress
}

func NewLegProgress(legIndex int, currentStep *StepProgress) *LegProgress {
	return &LegProgress{
		legIndex:    legIndex,
		currentStep: currentStep,
	}
}

func (lp *LegProgress) LegIndex() int {
	return lp.legIndex
}

func (lp *LegProgress) CurrentStepProgress() *StepProgress {
	return lp.currentStep
}

// RouteProgress is a read-only snapshot of the user's progress along a route.
type RouteProgress struct {
	route            *Route
	currentLeg       *LegProgress
	distanceTraveled float64
	speed            float64 // m/s of the fix the snapshot was computed from, -1 when unknown
}

func NewRouteProgress(route *Route, currentLeg *LegProgress, distanceTraveled, speed float64) *RouteProgress {
	return &RouteProgress{
		route:            route,
		currentLeg:       currentLeg,
		distanceTraveled: distanceTraveled,
		speed:            speed,
	}
}

func (rp *RouteProgress) Route() *Route {
	return rp.route
}

func (rp *RouteProgress) CurrentLegProgress() *LegProgress {
	return rp.currentLeg
}

// CurrentStepProgress. nil when there is no current leg or step.
func (rp *RouteProgress) CurrentStepProgress() *StepProgress {
	if rp == nil || rp.currentLeg == nil {
		return nil
	}
	return rp.currentLeg.currentStep
}

// DistanceTraveled. meter from the route origin
func (rp *RouteProgress) DistanceTraveled() float64 {
	return rp.distanceTraveled
}

func (rp *RouteProgress) DistanceRemaining() float64 {
	if rp.route == nil {
		return 0
	}
	rem := rp.route.Length() - rp.distanceTraveled
	if rem < 0 {
		return 0
	}
	return rem
}

func (rp *RouteProgress) Speed() float64 {
	return rp.speed
}
