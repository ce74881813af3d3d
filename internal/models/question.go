package models

// Question is a single quiz question. Questions are authored through an
// external collaborator and read-only from the engine's perspective.
// Answers match by case-insensitive exact equality.
type Question struct {
	Round          Round
	QuestionNumber int
	Content        string
	Answer         string
	Points         int
	Hints          []string
}
