package models

// Parsing status values stamped on the annotation block.
const (
	ParsingStatusSuccess = "success"
	ParsingStatusFailed  = "failed"
)

// Option analysis types emitted per option letter.
const (
	OptionTypeCorrect    = "correct_answer"
	OptionTypeDistractor = "plausible_distractor"
	OptionTypeObvious    = "obvious_wrong"
)

// StudentAnalysis is the student-facing tier of the annotation.
type StudentAnalysis struct {
	Explanation        string   `json:"explanation"`
	LearningObjectives string   `json:"learning_objectives"`
	QuestionStrategy   string   `json:"question_strategy"`
	DifficultyLevel    string   `json:"difficulty_level"`
	KeyConcepts        []string `json:"key_concepts"`
	TimeManagement     string   `json:"time_management"`
}

// QuestionNature classifies what the question fundamentally tests.
type QuestionNature struct {
	PrimaryType          string `json:"primary_type"`
	SecondaryType        string `json:"secondary_type"`
	DifficultyReason     string `json:"difficulty_reason"`
	KnowledgeRequirement string `json:"knowledge_requirement"`
}

// ExaminerThoughtProcess captures the paper setter's design intent.
type ExaminerThoughtProcess struct {
	TestingObjective        string `json:"testing_objective"`
	QuestionDesignStrategy  string `json:"question_design_strategy"`
	TrapSetting             string `json:"trap_setting"`
	DiscriminationPotential string `json:"discrimination_potential"`
}

// OptionAnalysis describes one option of a question. The shape is
// controlled by the LLM, so every field is a plain string validated at
// the parsing boundary.
type OptionAnalysis struct {
	Type                    string `json:"type"`
	Reason                  string `json:"reason"`
	Trap                    string `json:"trap,omitempty"`
	EliminationStrategy     string `json:"elimination_strategy,omitempty"`
	StudentReasoningPattern string `json:"student_reasoning_pattern,omitempty"`
	CommonMisconception     string `json:"common_misconception,omitempty"`
}

// LearningInsights aggregates study guidance derived from the question.
type LearningInsights struct {
	KeyConcepts                       []string `json:"key_concepts"`
	CommonMistakes                    []string `json:"common_mistakes"`
	EliminationTechniqueSemiKnowledge string   `json:"elimination_technique_semi_knowledge"`
	EliminationTechniqueSafeGuess     string   `json:"elimination_technique_safe_guess"`
	MemoryHooks                       []string `json:"memory_hooks"`
	RelatedTopics                     []string `json:"related_topics"`
	CurrentAffairsConnection          string   `json:"current_affairs_connection,omitempty"`
}

// BackendAnalysis is the detailed backend tier of the annotation.
type BackendAnalysis struct {
	QuestionNature         QuestionNature            `json:"question_nature"`
	ExaminerThoughtProcess ExaminerThoughtProcess    `json:"examiner_thought_process"`
	OptionsAnalysis        map[string]OptionAnalysis `json:"options_analysis"`
	LearningInsights       LearningInsights          `json:"learning_insights"`
	DifficultyLevel        string                    `json:"difficulty_level"`
	TimeManagement         string                    `json:"time_management"`
	ConfidenceCalibration  string                    `json:"confidence_calibration"`
	StrengthIndicators     []string                  `json:"strength_indicators"`
	WeaknessIndicators     []string                  `json:"weakness_indicators"`
	RemediationTopics      []string                  `json:"remediation_topics"`
	AdvancedConnections    []string                  `json:"advanced_connections"`
}

// Annotation bundles both tiers as returned per question by the LLM.
type Annotation struct {
	StudentFacingAnalysis   *StudentAnalysis `json:"student_facing_analysis"`
	DetailedBackendAnalysis *BackendAnalysis `json:"detailed_backend_analysis"`
}

const fallbackText = "Analysis unavailable - manual review required"

// FallbackAnnotation returns a fully shaped placeholder annotation used
// when the LLM fails or its output cannot be parsed. Every field is
// populated so downstream consumers never see a half-shaped block.
func FallbackAnnotation(q *Question) *Annotation {
	difficulty := q.DifficultyLevel
	if difficulty == "" {
		difficulty = DifficultyMedium
	}

	optAnalysis := make(map[string]OptionAnalysis, 4)
	for _, letter := range OptionLetters {
		typ := OptionTypeDistractor
		if letter == q.CorrectAnswer {
			typ = OptionTypeCorrect
		}
		optAnalysis[letter] = OptionAnalysis{
			Type:   typ,
			Reason: fallbackText,
		}
	}

	return &Annotation{
		StudentFacingAnalysis: &StudentAnalysis{
			Explanation:        fallbackText,
			LearningObjectives: fallbackText,
			QuestionStrategy:   fallbackText,
			DifficultyLevel:    difficulty,
			KeyConcepts:        []string{},
			TimeManagement:     "1-2 minutes",
		},
		DetailedBackendAnalysis: &BackendAnalysis{
			QuestionNature: QuestionNature{
				PrimaryType:          "Unknown",
				SecondaryType:        "Unknown",
				DifficultyReason:     fallbackText,
				KnowledgeRequirement: fallbackText,
			},
			ExaminerThoughtProcess: ExaminerThoughtProcess{
				TestingObjective:        fallbackText,
				QuestionDesignStrategy:  fallbackText,
				TrapSetting:             fallbackText,
				DiscriminationPotential: fallbackText,
			},
			OptionsAnalysis: optAnalysis,
			LearningInsights: LearningInsights{
				KeyConcepts:                       []string{},
				CommonMistakes:                    []string{},
				EliminationTechniqueSemiKnowledge: fallbackText,
				EliminationTechniqueSafeGuess:     fallbackText,
				MemoryHooks:                       []string{},
				RelatedTopics:                     []string{},
			},
			DifficultyLevel:       difficulty,
			TimeManagement:        "1-2 minutes",
			ConfidenceCalibration: fallbackText,
			StrengthIndicators:    []string{},
			WeaknessIndicators:    []string{},
			RemediationTopics:     []string{},
			AdvancedConnections:   []string{},
		},
	}
}
