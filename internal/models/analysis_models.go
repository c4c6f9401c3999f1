package models

import (
	"encoding/json"
	"fmt"
)

type ResponseKind string

const (
	KindHuman    ResponseKind = "human"
	KindAnalysis ResponseKind = "analysis"
)

// AnalysisResponse is the result of routing a message. It is implemented
// only by *HumanResponse and *AnalysisResult; switch on the concrete type
// (or Kind) before reading fields.
type AnalysisResponse interface {
	Kind() ResponseKind
	isAnalysisResponse()
}

// HumanResponse is the scripted answer for a recognised question.
type HumanResponse struct {
	Text string `json:"text"`
}

func (*HumanResponse) Kind() ResponseKind { return KindHuman }
func (*HumanResponse) isAnalysisResponse() {}

func (h *HumanResponse) MarshalJSON() ([]byte, error) {
	type alias HumanResponse
	return json.Marshal(struct {
		Kind ResponseKind `json:"kind"`
		*alias
	}{KindHuman, (*alias)(h)})
}

// AnalysisResult is the full multi-signal analysis of a message.
type AnalysisResult struct {
	Sentiment SentimentResult `json:"sentiment"`
	Topics    []string        `json:"topics"`
	Risk      bool            `json:"risk"`
	Summary   string          `json:"summary"`
	Feedback  string          `json:"feedback"`
}

func (*AnalysisResult) Kind() ResponseKind { return KindAnalysis }
func (*AnalysisResult) isAnalysisResponse() {}

func (a *AnalysisResult) MarshalJSON() ([]byte, error) {
	type alias AnalysisResult
	return json.Marshal(struct {
		Kind ResponseKind `json:"kind"`
		*alias
	}{KindAnalysis, (*alias)(a)})
}

// DecodeAnalysisResponse reads a kind-tagged JSON document back into the
// matching variant.
func DecodeAnalysisResponse(data []byte) (AnalysisResponse, error) {
	var head struct {
		Kind ResponseKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read response kind: %w", err)
	}

	switch head.Kind {
	case KindHuman:
		var h HumanResponse
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, err
		}
		return &h, nil
	case KindAnalysis:
		var a AnalysisResult
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		return &a, nil
	default:
		return nil, fmt.Errorf("unknown response kind %q", head.Kind)
	}
}

// FAQEntry pairs a canonical question with its scripted answer. The answer
// may contain a {user_name} placeholder.
type FAQEntry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}
