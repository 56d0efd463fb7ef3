package api

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/validate"
)

// requestValidate checks decoded request bodies. Gin's own binding
// validation is left to the "binding" tags; the "validate" tags here carry
// the domain rules.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	if err := requestValidate.RegisterValidation("revision", validateRevision); err != nil {
		panic(fmt.Sprintf("register revision validation: %v", err))
	}
}

// validateRevision accepts "" or a pre-production label. Letter revisions
// are only minted by release-to-production.
func validateRevision(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || model.IsPreProduction(s)
}

// CreateRequest is the body of POST /v1/harnesses.
type CreateRequest struct {
	Name        string          `json:"name"`
	Revision    string          `json:"revision" validate:"revision"`
	Description string          `json:"description"`
	HarnessData *model.Document `json:"harnessData"`
	PartID      *string         `json:"partId"`
	Thumbnail   *string         `json:"thumbnail"`
}

// UpdateRequest is the body of PATCH /v1/harnesses/:id. Absent fields are
// left unchanged.
type UpdateRequest struct {
	Name             *string         `json:"name"`
	Description      *string         `json:"description"`
	HarnessData      *model.Document `json:"harnessData"`
	PartID           *string         `json:"partId"`
	Thumbnail        *string         `json:"thumbnail"`
	ForceNewRevision bool            `json:"forceNewRevision"`
	Notes            string          `json:"notes" validate:"max=4096"`
}

// TransitionRequest is the optional body of submit, reject and release.
type TransitionRequest struct {
	Notes string `json:"notes" validate:"max=4096"`
}

// RevertRequest is the body of POST /v1/harnesses/:id/revert.
type RevertRequest struct {
	HistoryEntryID string `json:"historyEntryId" binding:"required"`
}

// ValidateRequest is the body of POST /v1/harnesses/validate.
type ValidateRequest struct {
	HarnessData *model.Document `json:"harnessData" binding:"required"`
	OwnerID     string          `json:"ownerId"`
}

// SubDataRequest is the body of POST /v1/harnesses/sub-data.
type SubDataRequest struct {
	IDs []string `json:"ids" binding:"required" validate:"min=1,max=500,dive,required"`
}

// ParentsResponse lists the harnesses embedding one harness.
type ParentsResponse struct {
	Parents []model.HarnessRef `json:"parents"`
}

// SubDataResponse maps harness ids to documents.
type SubDataResponse struct {
	Documents map[string]*model.Document `json:"documents"`
}

// HealthResponse is returned by GET /v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string                     `json:"error"`
	Code       string                     `json:"code"`
	HarnessID  string                     `json:"harnessId,omitempty"`
	Details    map[string]string          `json:"details,omitempty"`
	Validation []validate.ValidationError `json:"validation,omitempty"`
}
