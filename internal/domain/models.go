package domain

import "time"

// Difficulty classifies a question for scoring purposes.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Points returns the value awarded for a correct answer at this difficulty.
func (d Difficulty) Points() int {
	switch d {
	case DifficultyEasy:
		return 2
	case DifficultyMedium:
		return 5
	case DifficultyHard:
		return 10
	}
	return 0
}

// Valid reports whether d is one of the known difficulty tags.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Mode selects how a session is sized and paced.
type Mode string

const (
	// ModeQuick is a short fixed-count session with auto-advance after each answer.
	ModeQuick Mode = "quick"
	// ModeTimed is a fixed-count session with an overall time budget.
	ModeTimed Mode = "timed"
	// ModeCustom sizes the session from a caller-supplied filter.
	ModeCustom Mode = "custom"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeQuick || m == ModeTimed || m == ModeCustom
}

// Status is the lifecycle state of a quiz session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether the session accepts no further mutations.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Option is one labeled answer choice of a question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is an MCQ question as loaded from the question bank.
// Questions are immutable once loaded into a session.
type Question struct {
	ID           string     `json:"id"`
	Prompt       string     `json:"prompt"`
	Options      []Option   `json:"options"`
	CorrectIndex int        `json:"correctIndex"`
	Explanation  string     `json:"explanation"`
	Category     string     `json:"category"`
	Difficulty   Difficulty `json:"difficulty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ValidOption reports whether i indexes one of the question's options.
func (q Question) ValidOption(i int) bool {
	return i >= 0 && i < len(q.Options)
}

// QuestionFilter narrows which questions the gateway fetches for a session.
// Zero-value fields are wildcards; Count is the number of questions requested.
type QuestionFilter struct {
	Category   string     `json:"category,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Count      int        `json:"count"`
}

// AnsweredQuestion records one submitted answer. Correctness is fixed at
// answer time by comparing against the question's correct index as loaded,
// never recomputed later.
type AnsweredQuestion struct {
	QuestionID    string        `json:"questionId"`
	SelectedIndex int           `json:"selectedIndex"`
	Correct       bool          `json:"correct"`
	TimedOut      bool          `json:"timedOut"`
	TimeSpent     time.Duration `json:"-"`
	SubmittedAt   time.Time     `json:"submittedAt"`
	// Acked reports whether the gateway has acknowledged this answer.
	Acked bool `json:"-"`
}

// TimeSpentSeconds is the persistence form of TimeSpent.
func (a AnsweredQuestion) TimeSpentSeconds() int {
	return int(a.TimeSpent.Round(time.Second) / time.Second)
}

// AnswerFeedback is what the UI shows after each submission: outcome,
// the correct option, and the question's explanation text.
type AnswerFeedback struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	CorrectIndex  int    `json:"correctIndex"`
	Explanation   string `json:"explanation"`
	PointsAwarded int    `json:"pointsAwarded"`
	TimeSpent     int    `json:"timeSpentSeconds"`
}

// SessionRecord is the gateway's view of a newly created session.
type SessionRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Mode        Mode      `json:"mode"`
	QuestionIDs []string  `json:"questionIds"`
	StartedAt   time.Time `json:"startedAt"`
}

// QuizResult is the immutable snapshot produced once when a session completes.
type QuizResult struct {
	SessionID         string             `json:"sessionId"`
	UserID            string             `json:"userId"`
	CorrectCount      int                `json:"correctCount"`
	TotalCount        int                `json:"totalCount"`
	ScorePercent      int                `json:"scorePercent"`
	PointsEarned      int                `json:"pointsEarned"`
	TotalTimeSeconds  int                `json:"totalTimeSeconds"`
	CategoryAccuracy  map[string]float64 `json:"categoryAccuracy"`
	Strengths         []string           `json:"strengths"`
	Improvements      []string           `json:"improvements"`
	SpeedRating       int                `json:"speedRating"`
	ConsistencyRating int                `json:"consistencyRating"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// StatsDelta is the per-result increment applied to a user's lifetime stats.
type StatsDelta struct {
	QuizzesCompleted  int `json:"quizzesCompleted"`
	QuestionsAnswered int `json:"questionsAnswered"`
	CorrectAnswers    int `json:"correctAnswers"`
	PointsEarned      int `json:"pointsEarned"`
	TimeSpentSeconds  int `json:"timeSpentSeconds"`
}

// QuestionView is the client-facing form of a question: no correct index and
// no explanation, so snapshots cannot leak answers.
type QuestionView struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Options  []Option `json:"options"`
	Category string   `json:"category"`
}

// SessionSnapshot is a read-only projection of a session for rendering.
type SessionSnapshot struct {
	SessionID       string             `json:"sessionId"`
	UserID          string             `json:"userId"`
	Mode            Mode               `json:"mode"`
	Status          Status             `json:"status"`
	CurrentIndex    int                `json:"currentIndex"`
	TotalQuestions  int                `json:"totalQuestions"`
	AnsweredCount   int                `json:"answeredCount"`
	CurrentQuestion *QuestionView      `json:"currentQuestion,omitempty"`
	Answers         []AnsweredQuestion `json:"answers"`
	ElapsedSeconds  int                `json:"elapsedSeconds"`
	StartedAt       time.Time          `json:"startedAt"`
	CompletedAt     *time.Time         `json:"completedAt,omitempty"`
	Result          *QuizResult        `json:"result,omitempty"`
	// Warning carries the not-persisted notice when result submission failed.
	Warning string `json:"warning,omitempty"`
}
