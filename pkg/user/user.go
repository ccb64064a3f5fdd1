package user

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Settings    Settings
}

// Settings carries the per-user preferences the lifecycle engine depends on:
// the IANA timezone used for streaks, reminder texts, and calendar events, and
// the weekly completion goal shown in the summary.
type Settings struct {
	Timezone   string
	WeeklyGoal int
}
