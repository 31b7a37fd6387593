package tutor

import (
	"fmt"
	"strings"
	"time"
)

// Word is a vocabulary item produced by conversation generation.
// Translation carries the learner's display language.
type Word struct {
	Russian       string    `json:"russian"`
	Pronunciation string    `json:"pronunciation"`
	Translation   string    `json:"japanese"`
	BaseForm      string    `json:"baseForm,omitempty"`
	CaseInfo      *CaseInfo `json:"caseInfo,omitempty"`
}

// CaseInfo explains the grammatical case a word appears in.
type CaseInfo struct {
	CaseName        string          `json:"caseName"`
	CaseNameLocal   string          `json:"caseNameJapanese"`
	Explanation     string          `json:"explanation"`
	DeclensionTable DeclensionTable `json:"declensionTable"`
}

// DeclensionTable holds singular and plural forms.
type DeclensionTable struct {
	Singular Declension `json:"singular"`
	Plural   Declension `json:"plural"`
}

// Declension lists a noun in the six Russian cases.
type Declension struct {
	Nominative    string `json:"nominative"`
	Genitive      string `json:"genitive"`
	Dative        string `json:"dative"`
	Accusative    string `json:"accusative"`
	Instrumental  string `json:"instrumental"`
	Prepositional string `json:"prepositional"`
}

// Forms returns the declension as case name / form pairs in textbook order.
func (d Declension) Forms() [][2]string {
	return [][2]string{
		{"Nominative", d.Nominative},
		{"Genitive", d.Genitive},
		{"Dative", d.Dative},
		{"Accusative", d.Accusative},
		{"Instrumental", d.Instrumental},
		{"Prepositional", d.Prepositional},
	}
}

var caseLocalNames = map[string]string{
	"Nominative":    "主格",
	"Genitive":      "生格",
	"Dative":        "与格",
	"Accusative":    "対格",
	"Instrumental":  "造格",
	"Prepositional": "前置格",
}

// DeclensionRow is one case of a drill table.
type DeclensionRow struct {
	Case      string `json:"case"`
	CaseLocal string `json:"caseJapanese"`
	Singular  string `json:"singular"`
	Plural    string `json:"plural"`
	Current   bool   `json:"current,omitempty"`
}

// Rows returns the six cases with singular and plural forms side by side.
// The case the word appears in is marked Current.
func (c *CaseInfo) Rows() []DeclensionRow {
	if c == nil {
		return nil
	}
	singular := c.DeclensionTable.Singular.Forms()
	plural := c.DeclensionTable.Plural.Forms()
	rows := make([]DeclensionRow, len(singular))
	for i, f := range singular {
		rows[i] = DeclensionRow{
			Case:      f[0],
			CaseLocal: caseLocalNames[f[0]],
			Singular:  f[1],
			Plural:    plural[i][1],
			Current:   strings.EqualFold(f[0], strings.TrimSpace(c.CaseName)),
		}
	}
	return rows
}

// CaseDrill is the declension exercise for a word as it appeared in a line.
type CaseDrill struct {
	Russian       string          `json:"russian"`
	BaseForm      string          `json:"baseForm"`
	CaseName      string          `json:"caseName"`
	CaseNameLocal string          `json:"caseNameJapanese"`
	Explanation   string          `json:"explanation"`
	Rows          []DeclensionRow `json:"rows"`
}

// Drill returns the word's case drill. ok is false when the generator
// attached no case information.
func (w Word) Drill() (d CaseDrill, ok bool) {
	if w.CaseInfo == nil || w.BaseForm == "" {
		return CaseDrill{}, false
	}
	return CaseDrill{
		Russian:       w.Russian,
		BaseForm:      w.BaseForm,
		CaseName:      w.CaseInfo.CaseName,
		CaseNameLocal: w.CaseInfo.CaseNameLocal,
		Explanation:   w.CaseInfo.Explanation,
		Rows:          w.CaseInfo.Rows(),
	}, true
}

// FavoriteWord is a saved word with its review schedule.
type FavoriteWord struct {
	Word
	Schedule
}

// Schedule is the SM-2 state of one favorite.
type Schedule struct {
	Repetition     int       `json:"repetition"`
	Interval       int       `json:"interval"`
	EaseFactor     float64   `json:"easeFactor"`
	NextReviewDate time.Time `json:"nextReviewDate"`
}

// ExampleSentence illustrates a grammar point.
type ExampleSentence struct {
	Russian       string `json:"russian"`
	Pronunciation string `json:"pronunciation"`
	Translation   string `json:"japanese"`
}

// GrammarPoint is an optional explanation attached to a line.
type GrammarPoint struct {
	Title       string            `json:"title"`
	Explanation string            `json:"explanation"`
	Examples    []ExampleSentence `json:"examples"`
}

// ConversationLine is one utterance of a generated dialogue.
type ConversationLine struct {
	Speaker       string        `json:"speaker"`
	Russian       string        `json:"russian"`
	Pronunciation string        `json:"pronunciation"`
	Translation   string        `json:"japanese"`
	Words         []Word        `json:"words"`
	GrammarPoint  *GrammarPoint `json:"grammarPoint,omitempty"`
}

// Feedback is the pronunciation assessment of a user turn.
type Feedback struct {
	Score     float64 `json:"score"`
	Text      string  `json:"feedback"`
	IsCorrect bool    `json:"is_correct"`
}

// Rating is the learner's recall grade for a review.
type Rating string

const (
	RatingAgain Rating = "again"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// ValidRatings returns all ratings.
func ValidRatings() []Rating {
	return []Rating{RatingAgain, RatingGood, RatingEasy}
}

// IsValid reports whether r is a known rating.
func (r Rating) IsValid() bool {
	for _, valid := range ValidRatings() {
		if r == valid {
			return true
		}
	}
	return false
}

// ParseRating parses a rating name, case-insensitively.
func ParseRating(s string) (Rating, error) {
	r := Rating(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("invalid rating %q: want again, good or easy", s)
	}
	return r, nil
}

// Level is a topic difficulty.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// Topic is a conversation subject.
type Topic struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       Level  `json:"level"`
}

// customTopicPrefix marks learner-created topics.
const customTopicPrefix = "custom"

// IsCustom reports whether the topic was created by the learner.
func (t Topic) IsCustom() bool {
	return strings.HasPrefix(t.ID, customTopicPrefix)
}

// Prompt returns what is sent to the generator: the title for custom
// topics and the ID for built-in ones.
func (t Topic) Prompt() string {
	if t.IsCustom() {
		return t.Title
	}
	return t.ID
}

// TopicCategory groups topics of one level.
type TopicCategory struct {
	Name   string  `json:"name"`
	Topics []Topic `json:"topics"`
}
