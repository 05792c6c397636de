package verification

import "math"

// Criterion is one checklist item inside a step.
type Criterion struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Step groups criteria on the verification checklist.
type Step struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Criteria []Criterion `json:"criteria"`
}

var steps = []Step{
	{
		ID:    "basic_info",
		Title: "Basic Information",
		Criteria: []Criterion{
			{"property_name", "Property name is descriptive and accurate", true},
			{"property_type", "Property type is correctly categorized", true},
			{"location_accurate", "Location and address are accurate", true},
			{"description_complete", "Description is complete and informative", true},
			{"contact_info", "Manager contact information is valid", true},
		},
	},
	{
		ID:    "photos",
		Title: "Photos & Media",
		Criteria: []Criterion{
			{"photo_quality", "Photos are high quality and well-lit", true},
			{"photo_accuracy", "Photos accurately represent the property", true},
			{"photo_coverage", "Photos cover all main areas", true},
			{"photo_recent", "Photos are recent", false},
			{"virtual_tour", "Virtual tour available", false},
		},
	},
	{
		ID:    "amenities",
		Title: "Amenities & Features",
		Criteria: []Criterion{
			{"amenities_accurate", "Listed amenities are accurate", true},
			{"capacity_accurate", "Guest capacity is accurate", true},
			{"accessibility", "Accessibility features documented", false},
			{"special_features", "Special features highlighted", false},
		},
	},
	{
		ID:    "pricing",
		Title: "Pricing & Policies",
		Criteria: []Criterion{
			{"pricing_reasonable", "Pricing is reasonable for the market", true},
			{"pricing_transparent", "All fees are clearly disclosed", true},
			{"cancellation_policy", "Cancellation policy is clear", true},
			{"house_rules", "House rules are reasonable and clear", true},
		},
	},
	{
		ID:    "legal",
		Title: "Legal & Compliance",
		Criteria: []Criterion{
			{"business_license", "Valid business license provided", true},
			{"rental_permit", "Short-term rental permit verified", true},
			{"tax_compliance", "Tax registration confirmed", true},
			{"insurance", "Liability insurance verified", true},
			{"zoning_compliance", "Zoning compliance confirmed", true},
		},
	},
	{
		ID:    "safety",
		Title: "Safety & Security",
		Criteria: []Criterion{
			{"smoke_detectors", "Smoke detectors installed and functional", true},
			{"carbon_monoxide", "Carbon monoxide detectors installed", true},
			{"fire_extinguisher", "Fire extinguisher available", true},
			{"emergency_exits", "Emergency exits clearly marked", true},
			{"first_aid", "First aid kit available", false},
			{"security_measures", "Security measures in place", false},
		},
	},
}

var totalCriteria int

func init() {
	for _, step := range steps {
		totalCriteria += len(step.Criteria)
	}
}

// Steps returns a copy of the ordered checklist catalogue.
func Steps() []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = Step{ID: s.ID, Title: s.Title, Criteria: append([]Criterion(nil), s.Criteria...)}
	}
	return out
}

// TotalCriteria counts criteria across all steps, required or not.
func TotalCriteria() int {
	return totalCriteria
}

// CheckKey builds the verificationChecks key for a criterion.
func CheckKey(stepID, criterionID string) string {
	return stepID + "_" + criterionID
}

// Progress is the share of true checks over all criteria, as a rounded percentage.
// Required and optional criteria weigh the same.
func Progress(checks Checks) int {
	if totalCriteria == 0 {
		return 0
	}
	passed := 0
	for _, v := range checks {
		if v {
			passed++
		}
	}
	return int(math.Round(float64(passed) / float64(totalCriteria) * 100))
}

// StepProgress is the completion of one step.
type StepProgress struct {
	StepID     string `json:"stepId"`
	Title      string `json:"title"`
	Checked    int    `json:"checked"`
	Total      int    `json:"total"`
	Completion int    `json:"completion"`
	Complete   bool   `json:"complete"`
}

// StepCompletion reports per-step progress. A step is complete when all of
// its required criteria are checked.
func StepCompletion(checks Checks) []StepProgress {
	out := make([]StepProgress, 0, len(steps))
	for _, step := range steps {
		checked := 0
		complete := true
		for _, c := range step.Criteria {
			ok := checks[CheckKey(step.ID, c.ID)]
			if ok {
				checked++
			} else if c.Required {
				complete = false
			}
		}
		out = append(out, StepProgress{
			StepID:     step.ID,
			Title:      step.Title,
			Checked:    checked,
			Total:      len(step.Criteria),
			Completion: int(math.Round(float64(checked) / float64(len(step.Criteria)) * 100)),
			Complete:   complete,
		})
	}
	return out
}

// MissingRequired lists the keys of required criteria not yet checked, in catalogue order.
func MissingRequired(checks Checks) []string {
	var missing []string
	for _, step := range steps {
		for _, c := range step.Criteria {
			key := CheckKey(step.ID, c.ID)
			if c.Required && !checks[key] {
				missing = append(missing, key)
			}
		}
	}
	return missing
}

// CanVerify reports whether every required criterion is checked.
func CanVerify(checks Checks) bool {
	return len(MissingRequired(checks)) == 0
}
