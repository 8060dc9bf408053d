package nutrisafe

import (
	"github.com/kailas-cloud/nutrisafe/internal/domain/canonical"
	"github.com/kailas-cloud/nutrisafe/internal/domain/finding"
	"github.com/kailas-cloud/nutrisafe/internal/domain/item"
	"github.com/kailas-cloud/nutrisafe/internal/domain/profile"
	"github.com/kailas-cloud/nutrisafe/internal/domain/query"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/kbload"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/normalize"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/suggest"
)

// Query inputs.
type (
	Query      = query.Query
	Profile    = profile.Profile
	Medication = profile.Medication
	Allergy    = profile.Allergy
	Item       = item.Item
	ItemKind   = item.Kind
)

// Item kinds.
const (
	KindFood           = item.KindFood
	KindIngredientList = item.KindIngredientList
	KindRecipe         = item.KindRecipe
)

// Verdict outputs.
type (
	Verdict       = domverdict.Verdict
	VerdictStatus = domverdict.Status
	Warning       = domverdict.Warning
	Finding       = finding.Finding
)

// Verdict statuses.
const (
	StatusComplete       = domverdict.StatusComplete
	StatusIncomplete     = domverdict.StatusIncomplete
	StatusUnableToVerify = domverdict.StatusUnableToVerify
	StatusRefused        = domverdict.StatusRefused
)

// Name normalization.
type (
	Name       = suggest.Name
	NameKind   = canonical.Kind
	Resolution = normalize.Resolution
)

// Name kinds.
const (
	NameDrug      = canonical.Drug
	NameFood      = canonical.Food
	NameAllergen  = canonical.Allergen
	NameCondition = canonical.Condition
)

// Knowledge base bundles.
type (
	Format       = kb.Format
	ReloadResult = kbload.Result
)

// Bundle encodings.
const (
	FormatYAML = kb.FormatYAML
	FormatJSON = kb.FormatJSON
)
