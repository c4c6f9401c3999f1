package models

import (
	"encoding/json"
	"time"
)

// AnalysisRequest is what a caller hands to the pipeline. ChatID 0 means
// the message starts a new chat.
type AnalysisRequest struct {
	RequestID string `json:"request_id"`
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	ChatID    int64  `json:"chat_id,omitempty"`
	Text      string `json:"text"`
}

// AnalysisEvent is published for every handled request.
type AnalysisEvent struct {
	RequestID string           `json:"request_id"`
	UserID    int64            `json:"user_id"`
	ChatID    int64            `json:"chat_id,omitempty"`
	ChatTitle string           `json:"chat_title,omitempty"`
	Text      string           `json:"text"`
	Response  AnalysisResponse `json:"response"`
	CreatedAt time.Time        `json:"created_at"`
}

func (e *AnalysisEvent) UnmarshalJSON(data []byte) error {
	type alias AnalysisEvent
	aux := struct {
		*alias
		Response json.RawMessage `json:"response"`
	}{alias: (*alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Response) == 0 || string(aux.Response) == "null" {
		e.Response = nil
		return nil
	}

	resp, err := DecodeAnalysisResponse(aux.Response)
	if err != nil {
		return err
	}
	e.Response = resp
	return nil
}

// AnalysisRecord is one row of analysis history. Only analysis responses
// are recorded; scripted answers are not.
type AnalysisRecord struct {
	UserID     int64          `json:"user_id" dynamodbav:"user_id"`
	RequestID  string         `json:"request_id" dynamodbav:"request_id"`
	Text       string         `json:"text" dynamodbav:"text"`
	Sentiment  SentimentLabel `json:"sentiment" dynamodbav:"sentiment"`
	Confidence float64        `json:"confidence" dynamodbav:"confidence"`
	Risk       bool           `json:"risk" dynamodbav:"risk"`
	Topics     []string       `json:"topics" dynamodbav:"topics,omitempty"`
	Summary    string         `json:"summary" dynamodbav:"summary"`
	CreatedAt  int64          `json:"created_at" dynamodbav:"created_at"`
	TTL        int64          `json:"-" dynamodbav:"ttl,omitempty"`
}

// RecordFromEvent returns the history record for e, or false when e did not
// carry an analysis response.
func RecordFromEvent(e AnalysisEvent) (AnalysisRecord, bool) {
	result, ok := e.Response.(*AnalysisResult)
	if !ok || result == nil {
		return AnalysisRecord{}, false
	}

	return AnalysisRecord{
		UserID:     e.UserID,
		RequestID:  e.RequestID,
		Text:       e.Text,
		Sentiment:  result.Sentiment.Label,
		Confidence: result.Sentiment.Confidence,
		Risk:       result.Risk,
		Topics:     result.Topics,
		Summary:    result.Summary,
		CreatedAt:  e.CreatedAt.Unix(),
	}, true
}
