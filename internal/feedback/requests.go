package feedback

import (
	"context"
	"fmt"
	"strings"

	"duotoeic/internal/apperr"
	"duotoeic/internal/models"
)

const (
	topicPrompt    = "Generate a short, engaging topic phrase for English study today (e.g., 'Office Politics', 'Renewable Energy', 'Client Negotiations'). Return ONLY the topic."
	questionPrompt = "Generate a single, random TOEIC Speaking Part 2 or Part 3 question. Return ONLY the question text."
)

func writingPrompt(topic, submission string) string {
	return fmt.Sprintf(`Act as a strict TOEIC Writing Examiner.
Topic: %q
Student Submission: %q

Analyze the submission and return a JSON object:
- estimatedScore: integer from 0 to 200
- correctedText: the full text with grammar fixed
- critique: concise feedback on grammar and coherence
- betterVocab: 3 to 5 advanced words or phrases the student could have used`, topic, submission)
}

func speakingPrompt(question, transcript string) string {
	return fmt.Sprintf(`Question: %q
Spoken Answer Transcript: %q

Evaluate this response for a TOEIC Speaking test and return a JSON object:
- fluencyScore: integer from 1 to 10
- relevanceScore: integer from 1 to 10
- feedback: short advice
- sampleAnswer: a high-scoring example answer for this question`, question, transcript)
}

// WritingFeedback grades a writing submission. It is a single attempt: a
// resubmission would be billed again and could be graded differently.
func (c *Client) WritingFeedback(ctx context.Context, topic, submission string) (models.WritingFeedback, error) {
	if strings.TrimSpace(topic) == "" || strings.TrimSpace(submission) == "" {
		return models.WritingFeedback{}, apperr.New(apperr.CodeValidation, "topic and submission required")
	}
	text, err := c.generate(ctx, writingPrompt(topic, submission), c.writing.raw)
	if err != nil {
		return models.WritingFeedback{}, err
	}
	var out models.WritingFeedback
	if err := c.writing.decode(text, &out); err != nil {
		return models.WritingFeedback{}, err
	}
	return out, nil
}

// SpeakingFeedback grades a spoken answer transcript. Single attempt.
func (c *Client) SpeakingFeedback(ctx context.Context, question, transcript string) (models.SpeakingFeedback, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(transcript) == "" {
		return models.SpeakingFeedback{}, apperr.New(apperr.CodeValidation, "question and transcript required")
	}
	text, err := c.generate(ctx, speakingPrompt(question, transcript), c.speaking.raw)
	if err != nil {
		return models.SpeakingFeedback{}, err
	}
	var out models.SpeakingFeedback
	if err := c.speaking.decode(text, &out); err != nil {
		return models.SpeakingFeedback{}, err
	}
	return out, nil
}

// DailyTopic never fails; it falls back to FallbackTopic.
func (c *Client) DailyTopic(ctx context.Context) string {
	return c.generateWithFallback(ctx, "topic", topicPrompt, FallbackTopic)
}

// SpeakingQuestion never fails; it falls back to FallbackQuestion.
func (c *Client) SpeakingQuestion(ctx context.Context) string {
	return c.generateWithFallback(ctx, "question", questionPrompt, FallbackQuestion)
}
