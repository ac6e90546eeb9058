package canvas

// Business stages.
const (
	StageNew      = "New"
	StageExisting = "Existing"
)

// Goal is a selectable primary goal.
type Goal struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var goalsByStage = map[string][]Goal{
	StageNew: {
		{ID: "Validation", Label: "আইডিয়া ভ্যালিডেশন (Idea Validation)", Description: "Validate the business idea. Focus on market feasibility, SWOT weaknesses, and initial financial risks."},
		{ID: "FullPlan", Label: "ফুল বিজনেস প্ল্যান (Comprehensive Planning)", Description: "Create a comprehensive business plan. Focus on detail, structure, and long-term viability."},
		{ID: "Pitch", Label: "ইনভেস্টর/লোনের জন্য প্রস্তুতি (Investor Pitch)", Description: "Prepare for Investors/Loans. Focus on ROI, Scalability, Exit Strategy, and convincing financial projections."},
		{ID: "Launch", Label: "লঞ্চ স্ট্র্যাটেজি (MVP/Launch Strategy)", Description: "MVP & Launch Strategy. Focus on low-cost entry, speed to market, and immediate next steps."},
	},
	StageExisting: {
		{ID: "ProblemSolving", Label: "সমস্যা সমাধান (Solve Specific Problem)", Description: "Solve specific operational problems. Focus on bottlenecks, efficiency, and threats."},
		{ID: "Expansion", Label: "নতুন দিক নির্দেশনা (Expansion/Diversification)", Description: "Expansion/Diversification. Focus on new market entry, risks of scaling, and resource allocation."},
		{ID: "Optimization", Label: "দক্ষতা ও লাভ বৃদ্ধি (Optimize & Scale)", Description: "Optimize & Scale. Focus on increasing profit margins, cutting costs, and improving KPIs."},
		{ID: "Investment", Label: "বিনিয়োগ আকর্ষণ (Attract Investment)", Description: "Attract Investment for Growth. Focus on valuation, historical growth (implied), and future projections."},
	},
}

// Industries lists the selectable industry codes.
var Industries = []string{
	"Retail", "Food", "Service", "Education", "Tech",
	"RealEstate", "RMG", "Agri", "Healthcare", "Other",
}

// GoalsFor returns the goals offered for a business stage, or nil.
func GoalsFor(stage string) []Goal {
	goals := goalsByStage[stage]
	out := make([]Goal, len(goals))
	copy(out, goals)
	if len(out) == 0 {
		return nil
	}
	return out
}

// GoalDescription returns the English focus statement for a goal id.
func GoalDescription(id string) string {
	for _, goals := range goalsByStage {
		for _, g := range goals {
			if g.ID == id {
				return g.Description
			}
		}
	}
	return "General Analysis"
}
