package domain

// EventKind tags the notification bus union.
type EventKind string

const (
	EventPointsEarned            EventKind = "pointsEarned"
	EventBadgeUnlocked           EventKind = "badgeUnlocked"
	EventMilestoneReached        EventKind = "milestoneReached"
	EventQuizCompleted           EventKind = "quizCompleted"
	EventDailyChallengeCompleted EventKind = "dailyChallengeCompleted"
)

// AllEventKinds lists every kind the engine publishes.
var AllEventKinds = []EventKind{
	EventPointsEarned,
	EventBadgeUnlocked,
	EventMilestoneReached,
	EventQuizCompleted,
	EventDailyChallengeCompleted,
}

// Event is implemented by the five engine events.
type Event interface {
	Kind() EventKind
}

// PointsEarned is published once per AddPoints call.
type PointsEarned struct {
	Points      int    `json:"points"`
	SourceType  string `json:"sourceType"`
	TotalPoints int    `json:"totalPoints"`
}

// BadgeUnlocked is published the single time a badge is added.
type BadgeUnlocked struct {
	Badge       BadgeDefinition `json:"badge"`
	BonusPoints int             `json:"bonusPoints"`
	TotalPoints int             `json:"totalPoints"`
}

// MilestoneReached is published the single time a threshold is recorded.
type MilestoneReached struct {
	Milestone   MilestoneDefinition `json:"milestone"`
	TotalPoints int                 `json:"totalPoints"`
}

// QuizCompleted is published after every accepted quiz submission.
type QuizCompleted struct {
	ScorePercent  int `json:"scorePercent"`
	PointsAwarded int `json:"pointsAwarded"`
}

// DailyChallengeCompleted is published when a claim succeeds.
type DailyChallengeCompleted struct {
	PointsAwarded int `json:"pointsAwarded"`
}

func (PointsEarned) Kind() EventKind            { return EventPointsEarned }
func (BadgeUnlocked) Kind() EventKind           { return EventBadgeUnlocked }
func (MilestoneReached) Kind() EventKind        { return EventMilestoneReached }
func (QuizCompleted) Kind() EventKind           { return EventQuizCompleted }
func (DailyChallengeCompleted) Kind() EventKind { return EventDailyChallengeCompleted }
