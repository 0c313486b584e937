// Package schema provides shared report-generation types used across
// multiple packages. It has no dependencies on other project packages to
// avoid import cycles.
package schema

import "encoding/json"

// SourceComment is one participant comment fed into the pipeline.
type SourceComment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Speaker   string `json:"speaker,omitempty"`
	Interview string `json:"interview,omitempty"`
}

// StepOptions configures one LLM-backed pipeline step.
type StepOptions struct {
	Model        string  `json:"model"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	UserPrompt   string  `json:"userPrompt,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

// SortStrategy selects how deduplicated claims are ordered.
type SortStrategy string

const (
	SortByClaimCount SortStrategy = "numPeople"
	SortBySalience   SortStrategy = "controversy"
)

// PipelineInput is the opaque job description handed to the runner.
// It carries everything a worker needs to execute a report end to end.
type PipelineInput struct {
	Comments []SourceComment `json:"comments"`

	ClusteringOptions StepOptions `json:"clusteringOptions"`
	ExtractionOptions StepOptions `json:"extractionOptions"`
	DedupOptions      StepOptions `json:"dedupOptions"`
	SummariesOptions  StepOptions `json:"summariesOptions"`
	CruxesOptions     StepOptions `json:"cruxesOptions,omitempty"`

	APIKey       string       `json:"apiKey"`
	EnableCruxes bool         `json:"enableCruxes,omitempty"`
	SortBy       SortStrategy `json:"sortBy,omitempty"`
}

// Subtopic groups related claims under a topic.
type Subtopic struct {
	Name        string `json:"subtopicName"`
	Description string `json:"subtopicShortDescription,omitempty"`
}

// Topic is one cluster produced by the clustering step.
type Topic struct {
	Name        string     `json:"topicName"`
	Description string     `json:"topicShortDescription,omitempty"`
	Subtopics   []Subtopic `json:"subtopics,omitempty"`
}

// ClusteringResult is the payload of the clustering step.
type ClusteringResult struct {
	Topics []Topic `json:"taxonomy"`
}

// Claim is one extracted, attributed claim.
type Claim struct {
	ID         string   `json:"claimId,omitempty"`
	Text       string   `json:"claim"`
	Quote      string   `json:"quote,omitempty"`
	CommentID  string   `json:"commentId"`
	Speaker    string   `json:"speaker,omitempty"`
	Topic      string   `json:"topicName"`
	Subtopic   string   `json:"subtopicName,omitempty"`
	Duplicates []string `json:"duplicates,omitempty"`
}

// ExtractionResult is the payload of the claim-extraction step.
type ExtractionResult struct {
	Claims []Claim `json:"claims"`
}

// SortedClaims is the payload of the dedup/sort step: claims grouped per
// topic and subtopic, duplicates folded, ordered by the requested strategy.
type SortedClaims struct {
	Tree   json.RawMessage `json:"tree"`
	Counts map[string]int  `json:"counts,omitempty"`
}

// TopicSummary is one per-topic summary from the summarization step.
type TopicSummary struct {
	Topic   string `json:"topicName"`
	Summary string `json:"summary"`
}

// SummariesResult is the payload of the summarization step.
type SummariesResult struct {
	Summaries []TopicSummary `json:"summaries"`
}

// CruxClaim is one crux statement splitting participants into camps.
type CruxClaim struct {
	Crux     string   `json:"cruxClaim"`
	Agree    []string `json:"agree,omitempty"`
	Disagree []string `json:"disagree,omitempty"`
	Topic    string   `json:"topicName,omitempty"`
}

// CruxesResult is the payload of the optional secondary analysis step.
type CruxesResult struct {
	Cruxes            []CruxClaim     `json:"cruxClaims"`
	ControversyMatrix json.RawMessage `json:"controversyMatrix,omitempty"`
}
