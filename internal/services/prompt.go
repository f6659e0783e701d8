package services

import (
	"fmt"
	"strings"

	"github.com/debugmentor/debugmentor-backend/internal/types"
)

var languageInstructions = map[string]string{
	"hindi": `- Explain EVERYTHING in PURE HINDI (Devanagari script)
- Use Hindi words and phrases throughout
- Translate all technical terms to Hindi
- Write in clear, simple Hindi
- Use proper Hindi grammar and sentence structure`,

	"english": `- Explain EVERYTHING in PURE ENGLISH
- Use clear, professional English
- Use standard technical terminology
- Write in proper English grammar
- Be precise and technical`,

	"hinglish": `- Explain in HINGLISH (mix of Hindi and English)
- Use Hindi words naturally mixed with English
- Use English for technical terms, Hindi for explanations
- Write in a conversational Hinglish style
- Make it feel natural and relatable`,

	"spanish": `- Explain EVERYTHING in SPANISH
- Use clear, professional Spanish
- Translate technical terms appropriately
- Write in proper Spanish grammar
- Be clear and educational`,

	"french": `- Explain EVERYTHING in FRENCH
- Use clear, professional French
- Translate technical terms appropriately
- Write in proper French grammar
- Be clear and educational`,

	"german": `- Explain EVERYTHING in GERMAN
- Use clear, professional German
- Translate technical terms appropriately
- Write in proper German grammar
- Be clear and educational`,

	"chinese": `- Explain EVERYTHING in CHINESE (Simplified)
- Use clear, professional Chinese
- Translate technical terms appropriately
- Write in proper Chinese grammar
- Be clear and educational`,

	"japanese": `- Explain EVERYTHING in JAPANESE
- Use clear, professional Japanese
- Translate technical terms appropriately
- Write in proper Japanese grammar
- Be clear and educational`,
}

var levelInstructions = map[string]string{
	types.ExperienceBeginner: `You are a senior software debugging mentor teaching a BEGINNER student.
- Use simple words and avoid technical jargon completely
- Break down every concept step-by-step
- Use real-world analogies and examples
- Explain WHY things happen, not just WHAT happens
- Be extremely detailed and patient
- Assume the student knows very little about programming
- Use simple language like you're explaining to a 10-year-old`,

	types.ExperienceIntermediate: `You are a senior software debugging mentor teaching an INTERMEDIATE developer.
- Use some technical terms but explain them briefly
- Provide clear explanations with context
- Include best practices and common patterns
- Balance simplicity with technical accuracy
- Assume basic programming knowledge
- Focus on understanding the debugging process`,

	types.ExperienceExperienced: `You are a senior software debugging mentor teaching an EXPERIENCED developer.
- Explain errors concisely with technical precision
- Use proper technical terminology
- Focus on root cause analysis and advanced debugging techniques
- Provide efficient solutions and best practices
- Assume strong programming knowledge
- Be direct and to the point
- Include advanced concepts and optimizations`,
}

func getLanguageInstructions(language string) string {
	if instr, ok := languageInstructions[language]; ok {
		return instr
	}
	return languageInstructions["hinglish"]
}

func getSystemPrompt(experienceLevel, language string) string {
	level, ok := levelInstructions[experienceLevel]
	if !ok {
		level = levelInstructions[types.ExperienceBeginner]
	}

	return fmt.Sprintf(`You are a senior software debugging mentor.
%s

LANGUAGE REQUIREMENTS:
%s

Teach debugging logic, not just fixes.
Be clear, practical, and educational.

ALWAYS return a valid JSON object with this exact structure:
{
  "error_explanation": "Simple explanation of the error",
  "root_cause": "The main reason why this error occurred",
  "possible_causes": [
    { "cause": "Cause description", "probability": 50 },
    { "cause": "Another possible cause", "probability": 30 },
    { "cause": "Less likely cause", "probability": 20 }
  ],
  "fix": {
    "code": "The fixed code or solution",
    "steps": ["Step 1", "Step 2", "Step 3"]
  },
  "why_fix_works": "Explanation of why this fix resolves the issue",
  "visual_flow": "Step-by-step execution flow in simple text",
  "real_world_example": "A relatable real-world analogy or example",
  "learning_tip": "A helpful tip for the developer to remember",
  "difficulty": "easy | medium | hard",
  "skill_score_delta": 5
}

IMPORTANT:
- Probabilities in possible_causes must total 100
- skill_score_delta should be between -5 and +10
- difficulty must be one of: easy, medium, hard
- Return ONLY valid JSON, no markdown, no code blocks`, level, getLanguageInstructions(language))
}

func buildAnalysisPrompt(errorInput, errorType, experienceLevel, language string) string {
	return fmt.Sprintf(`%s

Analyze this %s:

%s

Return the JSON response now:`, getSystemPrompt(experienceLevel, language), errorType, errorInput)
}

const quizSystemPrompt = `You are a senior software debugging mentor creating practice quiz questions.
Generate multiple-choice questions (MCQs) based on the error analysis provided.
Each question should test understanding of the error, its causes, or the fix.

ALWAYS return a valid JSON array with this exact structure:
[
  {
    "question": "Question text here",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "correctAnswer": 0
  }
]

IMPORTANT:
- correctAnswer is the index (0-3) of the correct option
- Questions should be educational and test understanding
- Make questions progressively harder if multiple questions
- Return ONLY valid JSON array, no markdown, no code blocks`

func buildQuizPrompt(analysis *types.AnalysisPayload, numQuestions int) string {
	fixCode := analysis.Fix.Code
	if strings.TrimSpace(fixCode) == "" {
		fixCode = "N/A"
	}
	whyFixWorks := analysis.WhyFixWorks
	if strings.TrimSpace(whyFixWorks) == "" {
		whyFixWorks = "N/A"
	}

	return fmt.Sprintf(`%s

Based on this error analysis, generate %d MCQ questions:

Error Explanation: %s
Root Cause: %s
Fix: %s
Why Fix Works: %s

Generate %d questions that test understanding of:
1. The error itself
2. Root cause identification
3. The fix and why it works
4. Related debugging concepts

Return the JSON array now:`, quizSystemPrompt, numQuestions, analysis.ErrorExplanation, analysis.RootCause, fixCode, whyFixWorks, numQuestions)
}
