package generator

import (
	"fmt"

	"khaos-quiz-service/internal/domain"
)

const (
	questionTokens = 50
	feedbackTokens = 100
	scoreTokens    = 50
)

// StartingMessages seeds a question conversation with the course context and topic.
func StartingMessages(course domain.CourseSnapshot, prompt string) []domain.Message {
	return []domain.Message{
		{
			Role: domain.RoleSystem,
			Content: fmt.Sprintf(
				"For the following questions, reply with only one numbered interview-type knowledge question. "+
					"This is for a %s student taking a course about the %s",
				course.EducationLevel, course.Description),
		},
		{
			Role:    domain.RoleUser,
			Content: "With a particular focus on " + prompt,
		},
	}
}

// FeedbackMessages asks for short feedback on the latest answer in history.
func FeedbackMessages(course domain.CourseSnapshot, history []domain.Message, answer string) []domain.Message {
	out := make([]domain.Message, 0, len(history)+2)
	out = append(out, domain.Message{
		Role: domain.RoleSystem,
		Content: fmt.Sprintf(
			"A %s student who is taking a course about the %s is replying to a question that you've just given them "+
				"in a numbered quiz format. You are replying to them and giving them serious concise feedback within "+
				"50 words on their answer and assigning a score out of 10 in the format 'Score: score/10'",
			course.EducationLevel, course.Description),
	})
	out = append(out, history...)
	out = append(out, domain.Message{Role: domain.RoleUser, Content: answer})
	return out
}

// Transcript interleaves each question with the student's answer to it.
// answers must be the same length as questions.
func Transcript(questions []domain.Message, answers []string) []domain.Message {
	out := make([]domain.Message, 0, len(questions)*2)
	for i, q := range questions {
		out = append(out, q, domain.Message{Role: domain.RoleUser, Content: answers[i]})
	}
	return out
}

const scoreFormat = `{"score": scoreAchieved} where scoreAchieved is a whole number from 0 to 10`

func attemptScoreMessages(transcript []domain.Message) []domain.Message {
	return withSystem(transcript,
		"Tally up the score based off all the users answers and reply with a final serious score out of 10 "+
			"in the exact json format "+scoreFormat+". Reply with the json only")
}

func practiceScoreMessages(history []domain.Message) []domain.Message {
	return withSystem(history,
		"Tally up the score based off all the users answers and feedback provided and reply with a final serious "+
			"score out of 10 in the exact json format "+scoreFormat+". Reply with the json only")
}

func withSystem(history []domain.Message, instruction string) []domain.Message {
	out := make([]domain.Message, 0, len(history)+1)
	out = append(out, history...)
	return append(out, domain.Message{Role: domain.RoleSystem, Content: instruction})
}
