package generator

import (
	"context"
	"errors"
	"strings"

	"khaos-quiz-service/internal/domain"
)

// ErrEmptyCompletion is returned when the provider answers with no text.
var ErrEmptyCompletion = errors.New("completion returned no content")

// Completer is the AI text-completion provider.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message, maxTokens int) (domain.Message, error)
}

// Generator builds prompts for every quiz flow and forwards them to a Completer.
type Generator struct {
	completer Completer
}

func New(completer Completer) *Generator {
	return &Generator{completer: completer}
}

// FirstQuestion generates the opening question for a topic.
func (g *Generator) FirstQuestion(ctx context.Context, course domain.CourseSnapshot, prompt string) (domain.Message, error) {
	return g.complete(ctx, StartingMessages(course, prompt), questionTokens)
}

// NextQuestion continues a question conversation given everything asked (and answered) so far.
func (g *Generator) NextQuestion(ctx context.Context, course domain.CourseSnapshot, prompt string, history []domain.Message) (domain.Message, error) {
	messages := append(StartingMessages(course, prompt), history...)
	return g.complete(ctx, messages, questionTokens)
}

// Feedback grades a single practice answer.
func (g *Generator) Feedback(ctx context.Context, course domain.CourseSnapshot, history []domain.Message, answer string) (domain.Message, error) {
	return g.complete(ctx, FeedbackMessages(course, history, answer), feedbackTokens)
}

// AttemptScore asks for the final score of an interleaved question/answer transcript.
func (g *Generator) AttemptScore(ctx context.Context, transcript []domain.Message) (domain.Message, error) {
	return g.complete(ctx, attemptScoreMessages(transcript), scoreTokens)
}

// PracticeScore asks for the final score of a practice conversation.
func (g *Generator) PracticeScore(ctx context.Context, history []domain.Message) (domain.Message, error) {
	return g.complete(ctx, practiceScoreMessages(history), scoreTokens)
}

func (g *Generator) complete(ctx context.Context, messages []domain.Message, maxTokens int) (domain.Message, error) {
	msg, err := g.completer.Complete(ctx, messages, maxTokens)
	if err != nil {
		return domain.Message{}, err
	}
	msg.Content = strings.TrimSpace(msg.Content)
	if msg.Content == "" {
		return domain.Message{}, ErrEmptyCompletion
	}
	if msg.Role == "" {
		msg.Role = domain.RoleAssistant
	}
	return msg, nil
}
