package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/letwinventory/harnessgraph/internal/engine"
	"github.com/letwinventory/harnessgraph/internal/model"
)

// statusFor maps engine error codes to HTTP statuses.
func statusFor(code engine.ErrorCode) int {
	switch code {
	case engine.ErrCodeNotFound:
		return http.StatusNotFound
	case engine.ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case engine.ErrCodeCycleRejected,
		engine.ErrCodeIllegalTransition,
		engine.ErrCodeStillReferenced,
		engine.ErrCodeRevertUnavailable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an ErrorResponse.
func (s *Server) writeError(c *gin.Context, err error) {
	var e *engine.Error
	if !errors.As(err, &e) {
		e = &engine.Error{Code: engine.ErrCodeInternal, Message: err.Error()}
	}
	resp := ErrorResponse{
		Error:      e.Message,
		Code:       string(e.Code),
		HarnessID:  e.HarnessID,
		Details:    e.Details,
		Validation: e.Validation,
	}
	if e.Code == engine.ErrCodeInternal {
		resp.Error = "internal error"
	}
	c.JSON(statusFor(e.Code), resp)
}

// badRequest renders a malformed request body.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: err.Error(),
		Code:  "INVALID_REQUEST",
	})
}

// bind decodes and validates a JSON body. An empty body is allowed when
// optional is set.
func bind(c *gin.Context, req any, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err)
		return false
	}
	if err := requestValidate.Struct(req); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func (s *Server) handleCreate(c *gin.Context) {
	var req CreateRequest
	if !bind(c, &req, false) {
		return
	}
	h, err := s.eng.Create(c.Request.Context(), engine.CreateInput{
		Name:        req.Name,
		Revision:    req.Revision,
		Description: req.Description,
		Document:    req.HarnessData,
		PartID:      req.PartID,
		Thumbnail:   req.Thumbnail,
		Actor:       s.actor(c),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h)
}

// handleList supports ?name=, ?state= (repeatable or comma separated),
// ?partId= and ?includeInactive=true.
func (s *Server) handleList(c *gin.Context) {
	f := engine.ListFilter{
		NameLike: c.Query("name"),
		PartID:   c.Query("partId"),
	}
	for _, v := range c.QueryArray("state") {
		for _, st := range strings.Split(v, ",") {
			state := model.ReleaseState(strings.TrimSpace(st))
			if !state.Valid() {
				badRequest(c, errors.New("invalid state "+strconv.Quote(st)))
				return
			}
			f.States = append(f.States, state)
		}
	}
	if v := c.Query("includeInactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		f.IncludeInactive = b
	}

	hs, err := s.eng.List(c.Request.Context(), f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, hs)
}

func (s *Server) handleGet(c *gin.Context) {
	h, err := s.eng.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req UpdateRequest
	if !bind(c, &req, false) {
		return
	}
	res, err := s.eng.Update(c.Request.Context(), engine.UpdateInput{
		ID:               c.Param("id"),
		Name:             req.Name,
		Description:      req.Description,
		Document:         req.HarnessData,
		PartID:           req.PartID,
		Thumbnail:        req.Thumbnail,
		ForceNewRevision: req.ForceNewRevision,
		Notes:            req.Notes,
		Actor:            s.actor(c),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := http.StatusOK
	if res.Forked {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

func (s *Server) handleDeactivate(c *gin.Context) {
	if err := s.eng.Deactivate(c.Request.Context(), c.Param("id"), s.actor(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSubmit(c *gin.Context)  { s.transition(c, s.eng.SubmitReview) }
func (s *Server) handleReject(c *gin.Context)  { s.transition(c, s.eng.Reject) }
func (s *Server) handleRelease(c *gin.Context) { s.transition(c, s.eng.Release) }

func (s *Server) transition(c *gin.Context, fn func(ctx context.Context, id, actor, notes string) (*engine.TransitionResult, error)) {
	var req TransitionRequest
	if !bind(c, &req, true) {
		return
	}
	res, err := fn(c.Request.Context(), c.Param("id"), s.actor(c), req.Notes)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleReleaseProduction(c *gin.Context) {
	h, err := s.eng.ReleaseToProduction(c.Request.Context(), c.Param("id"), s.actor(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h)
}

func (s *Server) handleRevert(c *gin.Context) {
	var req RevertRequest
	if !bind(c, &req, false) {
		return
	}
	h, err := s.eng.Revert(c.Request.Context(), c.Param("id"), req.HistoryEntryID, s.actor(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleHistory(c *gin.Context) {
	entries, err := s.eng.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleParents(c *gin.Context) {
	refs, err := s.eng.Parents(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if refs == nil {
		refs = []model.HarnessRef{}
	}
	c.JSON(http.StatusOK, ParentsResponse{Parents: refs})
}

func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if !bind(c, &req, false) {
		return
	}
	res, err := s.eng.Validate(c.Request.Context(), req.HarnessData, req.OwnerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSubData(c *gin.Context) {
	var req SubDataRequest
	if !bind(c, &req, false) {
		return
	}
	docs, err := s.eng.SubData(c.Request.Context(), req.IDs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SubDataResponse{Documents: docs})
}

func (s *Server) handleAudit(c *gin.Context) {
	report, err := s.eng.Audit(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
