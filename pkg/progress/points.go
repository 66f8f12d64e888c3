package progress

// Point values handed out by the learning activities.
const (
	PointsLessonCompletion  = 10
	PointsQuizExcellent     = 20
	PointsQuizGood          = 15
	PointsQuizAttempt       = 10
	PointsDailyStreak       = 5
	PointsAchievementUnlock = 25
)

const (
	DefaultSkill = "general"
	QuizSubject  = "Quiz"
	QuizSkill    = "problem_solving"

	quizExcellentPercentage = 80
	quizGoodPercentage      = 60
)

// QuizPoints maps a quiz result in percent to the points it is worth.
func QuizPoints(percentage float64) int {
	switch {
	case percentage >= quizExcellentPercentage:
		return PointsQuizExcellent
	case percentage >= quizGoodPercentage:
		return PointsQuizGood
	default:
		return PointsQuizAttempt
	}
}

var levelRewards = map[int]string{
	5:  "Bronze Badge",
	10: "Silver Badge",
	20: "Gold Badge",
	35: "Platinum Badge",
	50: "Diamond Badge",
}

// LevelReward names the badge granted on reaching level, if any.
func LevelReward(level int) (string, bool) {
	reward, ok := levelRewards[level]
	return reward, ok
}
