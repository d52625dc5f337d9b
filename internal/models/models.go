package models

import "time"

type UserID string

type User struct {
	ID      UserID `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Avatar  string `json:"avatar" yaml:"avatar"`
	Color   string `json:"color" yaml:"color"`
	PINHash string `json:"-" yaml:"pin_hash"`
}

type Goal struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"is_completed"`
	IsVerified  bool   `json:"is_verified"`
}

// WeeklyPlan is the single active ledger of an accountability period.
// Goals are keyed by owner; slice order is display order.
type WeeklyPlan struct {
	ID        string            `json:"id"`
	WeekStart time.Time         `json:"week_start"`
	Penalty   string            `json:"penalty"`
	Goals     map[UserID][]Goal `json:"goals"`
}

type Progress struct {
	UserID    UserID  `json:"user_id"`
	Verified  int     `json:"verified"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	AtRisk    bool    `json:"at_risk"`
}

type Skill string

const (
	SkillListening Skill = "Listening"
	SkillReading   Skill = "Reading"
	SkillSpeaking  Skill = "Speaking"
	SkillWriting   Skill = "Writing"
)

// Skills lists the fixed skill categories in dashboard order.
var Skills = []Skill{SkillListening, SkillReading, SkillSpeaking, SkillWriting}

func (s Skill) Valid() bool {
	for _, known := range Skills {
		if s == known {
			return true
		}
	}
	return false
}

type StudyLog struct {
	ID              string    `json:"id"`
	UserID          UserID    `json:"user_id"`
	Date            string    `json:"date"`
	Skill           Skill     `json:"skill"`
	DurationMinutes int       `json:"duration_minutes"`
	Score           *int      `json:"score,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type WritingFeedback struct {
	EstimatedScore int      `json:"estimatedScore"`
	CorrectedText  string   `json:"correctedText"`
	Critique       string   `json:"critique"`
	BetterVocab    []string `json:"betterVocab"`
}

type SpeakingFeedback struct {
	FluencyScore   int    `json:"fluencyScore"`
	RelevanceScore int    `json:"relevanceScore"`
	Feedback       string `json:"feedback"`
	SampleAnswer   string `json:"sampleAnswer"`
}
