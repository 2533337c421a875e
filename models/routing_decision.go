package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/upb/hydra-router/internal/routing"
)

// RoutingDecisionRecord is a persisted routing decision. The prompt itself
// is never stored, only its hash and the extracted signals.
type RoutingDecisionRecord struct {
	ID            uuid.UUID `json:"id" db:"id"`
	RequestID     string    `json:"request_id" db:"request_id"`
	Tier          string    `json:"tier" db:"tier"`
	Model         string    `json:"model" db:"model"`
	Confidence    float64   `json:"confidence" db:"confidence"`
	Complexity    float64   `json:"complexity" db:"complexity"`
	Reason        string    `json:"reason" db:"reason"`
	Substituted   bool      `json:"substituted" db:"substituted"`
	OriginalTier  *string   `json:"original_tier,omitempty" db:"original_tier"`
	OriginalModel *string   `json:"original_model,omitempty" db:"original_model"`
	WordCount     int       `json:"word_count" db:"word_count"`
	HasCode       bool      `json:"has_code" db:"has_code"`
	PreferQuality bool      `json:"prefer_quality" db:"prefer_quality"`
	PreferSpeed   bool      `json:"prefer_speed" db:"prefer_speed"`
	PromptHash    string    `json:"prompt_hash" db:"prompt_hash"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the RoutingDecisionRecord model
func (RoutingDecisionRecord) TableName() string {
	return "routing_decisions"
}

// NewRoutingDecisionRecord builds a record from a decision and the request
// that produced it
func NewRoutingDecisionRecord(req routing.RoutingRequest, decision routing.RoutingDecision) *RoutingDecisionRecord {
	rec := &RoutingDecisionRecord{
		ID:            uuid.New(),
		Tier:          decision.Tier.String(),
		Model:         decision.Model,
		Confidence:    decision.Confidence,
		Complexity:    decision.Complexity,
		Reason:        decision.Reason,
		Substituted:   decision.Substituted,
		WordCount:     decision.Signals.WordCount,
		HasCode:       decision.Signals.HasCodeSignal(),
		PreferQuality: req.PreferQuality,
		PreferSpeed:   req.PreferSpeed,
		PromptHash:    HashPrompt(req.SystemPrompt, req.Prompt),
		CreatedAt:     time.Now().UTC(),
	}
	if decision.Substituted {
		tier := decision.OriginalTier.String()
		model := decision.OriginalModel
		rec.OriginalTier = &tier
		rec.OriginalModel = &model
	}
	return rec
}

// WithRequestID sets the request correlation ID
func (r *RoutingDecisionRecord) WithRequestID(requestID string) *RoutingDecisionRecord {
	r.RequestID = requestID
	return r
}

// HashPrompt returns a hex SHA-256 over the system and user prompt
func HashPrompt(systemPrompt, prompt string) string {
	h := sha256.New()
	h.Write([]byte(systemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// TierCount is the number of decisions routed to a tier
type TierCount struct {
	Tier        string `json:"tier" db:"tier"`
	Count       int64  `json:"count" db:"count"`
	Substituted int64  `json:"substituted" db:"substituted"`
}
