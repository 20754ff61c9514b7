package domain

const (
	EventNameAttemptFinished    = "attempt.finished"
	EventNameLeaderboardUpdated = "leaderboard.updated"
	EventNameCourseEnrolled     = "course.enrolled"
)

// EventAttemptFinished fires whenever an attempt reaches Finished, whether
// by user submission or by the deadline sweep.
type EventAttemptFinished struct {
	Attempt Attempt
}

func (EventAttemptFinished) Name() string { return EventNameAttemptFinished }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }

type EventCourseEnrolled struct {
	Enrollment Enrollment
}

func (EventCourseEnrolled) Name() string { return EventNameCourseEnrolled }
