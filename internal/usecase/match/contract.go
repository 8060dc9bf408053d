package match

import "github.com/kailas-cloud/nutrisafe/internal/domain/record"

// KnowledgeBase is the lookup capability set the matcher needs.
type KnowledgeBase interface {
	InteractionsForDrug(drugID string) []record.Interaction
	AllergenRules(allergenID string) []record.AllergenRule
	RecommendationsForCondition(conditionID string) []record.Recommendation
}
