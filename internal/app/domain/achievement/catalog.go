package achievement

// Built-in achievement names. The evaluator matches catalog rows by name, so
// these must line up with what seeding writes.
const (
	NameFirstStep         = "First Step"
	NameGettingStarted    = "Getting Started"
	NameWeekWarrior       = "Week Warrior"
	NameMindfulnessMaster = "Mindfulness Master"
)

// StreakThresholds maps streak-based achievements to the streak length that
// unlocks them.
var StreakThresholds = map[string]int{
	NameGettingStarted:    3,
	NameWeekWarrior:       7,
	NameMindfulnessMaster: 30,
}

// Catalog returns the built-in achievements seeded at startup.
func Catalog() []Achievement {
	return []Achievement{
		{
			Name:        NameFirstStep,
			Description: "Write your first journal entry.",
			Icon:        "footprints",
			Requirement: "Save one journal entry",
			Level:       1,
		},
		{
			Name:        NameGettingStarted,
			Description: "Journal three days in a row.",
			Icon:        "sprout",
			Requirement: "Reach a 3-day streak",
			Level:       1,
		},
		{
			Name:        NameWeekWarrior,
			Description: "Journal seven days in a row.",
			Icon:        "flame",
			Requirement: "Reach a 7-day streak",
			Level:       2,
		},
		{
			Name:        NameMindfulnessMaster,
			Description: "Journal thirty days in a row.",
			Icon:        "crown",
			Requirement: "Reach a 30-day streak",
			Level:       3,
		},
	}
}
