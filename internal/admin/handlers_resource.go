package admin

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/gin-admin-kit/internal/session"
)

// User-facing outcome messages.
const (
	MsgInvalidCSRF  = "Invalid or missing CSRF token."
	MsgCreated      = "Record created."
	MsgUpdated      = "Record updated."
	MsgDeleted      = "Record deleted."
	MsgSaveFailed   = "An error occurred while saving the record."
	MsgDeleteFailed = "An error occurred while deleting the record."
	MsgLoadFailed   = "An error occurred while loading records."
)

func (s *Site) resolveResource(c *gin.Context) (*Resource, bool) {
	name := c.Param("resource")
	r, ok := s.Resource(name)
	if !ok {
		s.render(c, http.StatusNotFound, ViewNotFound, map[string]any{
			"page_title": "Not Found",
			"message":    fmt.Sprintf("Resource '%s' not found.", name),
		})
		return nil, false
	}
	return r, true
}

func (s *Site) recordNotFound(c *gin.Context, r *Resource, id string) {
	s.render(c, http.StatusNotFound, ViewNotFound, map[string]any{
		"page_title": "Not Found",
		"active_nav": r.Name(),
		"message":    fmt.Sprintf("Record '%s' not found.", id),
	})
}

func (s *Site) loadRecord(c *gin.Context, r *Resource, id string) (Record, bool) {
	rec, err := r.DAO().Get(c.Request.Context(), id)
	if errors.Is(err, ErrRecordNotFound) || (err == nil && rec == nil) {
		s.recordNotFound(c, r, id)
		return nil, false
	}
	if err != nil {
		s.daoFailure(c, r, id, "load admin record", err)
		s.render(c, http.StatusInternalServerError, ViewError, map[string]any{
			"active_nav": r.Name(),
			"message":    MsgLoadFailed,
		})
		return nil, false
	}
	return rec, true
}

func (s *Site) daoFailure(c *gin.Context, r *Resource, id, msg string, err error) {
	_ = c.Error(err)
	s.logger.Error(msg,
		zap.String("resource", r.Name()),
		zap.String("record_id", id),
		zap.Error(err),
	)
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (s *Site) handleList(c *gin.Context) {
	r, ok := s.resolveResource(c)
	if !ok {
		return
	}
	page := parsePage(c.Query("page"))
	search := strings.TrimSpace(c.Query("search"))
	size := r.PageSize()

	items, total, err := r.DAO().List(c.Request.Context(), (page-1)*size, size, search)
	if err != nil {
		s.daoFailure(c, r, "", "list admin records", err)
		s.render(c, http.StatusInternalServerError, ViewError, map[string]any{
			"active_nav": r.Name(),
			"message":    MsgLoadFailed,
		})
		return
	}

	columns := r.Columns()
	rows := make([]listRow, 0, len(items))
	for _, item := range items {
		id := formatValue(item[r.IDField()])
		row := listRow{ID: id, EditURL: s.editURL(r, id), DeleteURL: s.deleteURL(r, id)}
		for _, col := range columns {
			cell := listCell{Value: formatValue(item[col.Name])}
			if col.LinkToDetail {
				cell.Link = s.recordURL(r, id)
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}

	if format := c.Query("format"); format != "" {
		s.exportList(c, r, page, columns, rows, format)
		return
	}

	pg := Paginate(page, size, total)
	s.render(c, http.StatusOK, ViewList, map[string]any{
		"page_title":     r.DisplayName(),
		"active_nav":     r.Name(),
		"resource":       r,
		"columns":        columns,
		"rows":           rows,
		"empty":          len(rows) == 0,
		"page":           pg,
		"total":          total,
		"search":         search,
		"list_url":       s.listURL(r),
		"create_url":     s.createURL(r),
		"prev_url":       s.pageURL(r, page-1, search, ""),
		"next_url":       s.pageURL(r, page+1, search, ""),
		"export_csv_url": s.pageURL(r, page, search, "csv"),
		"export_pdf_url": s.pageURL(r, page, search, "pdf"),
	})
}

func (s *Site) handleDetail(c *gin.Context) {
	r, ok := s.resolveResource(c)
	if !ok {
		return
	}
	id := c.Param("id")
	rec, ok := s.loadRecord(c, r, id)
	if !ok {
		return
	}
	s.render(c, http.StatusOK, ViewDetail, map[string]any{
		"page_title": r.DisplayName(),
		"active_nav": r.Name(),
		"resource":   r,
		"record_id":  id,
		"rows":       detailRows(r, rec),
		"list_url":   s.listURL(r),
		"edit_url":   s.editURL(r, id),
		"delete_url": s.deleteURL(r, id),
	})
}

func (s *Site) renderForm(c *gin.Context, r *Resource, id string, fields []formField, formErr string) {
	action, cancel := s.createURL(r), s.listURL(r)
	if id != "" {
		action, cancel = s.editURL(r, id), s.recordURL(r, id)
	}
	s.render(c, http.StatusOK, ViewForm, map[string]any{
		"page_title": r.DisplayName(),
		"active_nav": r.Name(),
		"resource":   r,
		"record_id":  id,
		"is_edit":    id != "",
		"fields":     fields,
		"form_error": formErr,
		"action":     action,
		"cancel_url": cancel,
	})
}

// postForm parses an urlencoded submission.
func (s *Site) postForm(c *gin.Context) (url.Values, bool) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "Malformed form submission.")
		return nil, false
	}
	return c.Request.PostForm, true
}

// checkCSRF flashes an error and redirects to back when the submitted
// token does not match the session.
func (s *Site) checkCSRF(c *gin.Context, raw url.Values, back string) bool {
	sess := session.FromContext(c)
	if ValidCSRFToken(sess, raw.Get(csrfFormField)) {
		return true
	}
	if sess != nil {
		SetFlash(sess, FlashError, MsgInvalidCSRF)
	}
	s.redirect(c, back)
	return false
}

func (s *Site) handleCreatePage(c *gin.Context) {
	r, ok := s.resolveResource(c)
	if !ok {
		return
	}
	s.renderForm(c, r, "", buildFormFields(r.Fields(), fromSubmission(url.Values{}, nil), nil), "")
}

func (s *Site) handleCreateSubmit(c *gin.Context) {
	r, ok := s.resolveResource(c)
	if !ok {
		return
	}
	raw, ok := s.postForm(c)
	if !ok || !s.checkCSRF(c, raw, s.createURL(r)) {
		return
	}

	fields := r.Fields()
	if errs := ValidateForm(fields, raw); len(errs) > 0 {
		s.renderForm(c, r, "", buildFormFields(fields, fromSubmission(raw, nil), errs), "")
		return
	}

	start := time.Now()
	rec, err := r.DAO().Create(c.Request.Context(), CoerceForm(fields, raw))
	ev := Event{Action: ActionCreate, Resource: r.Name(), Duration: time.Since(start), Err: err}
	if err != nil {
		s.daoFailure(c, r, "", "create admin record", err)
		s.notify(c, ev)
		s.renderForm(c, r, "", buildFormFields(fields, fromSubmission(raw, nil), nil), MsgSaveFailed)
		return
	}
	ev.RecordID = formatValue(rec[r.IDField()])
	s.notify(c, ev)

	SetFlash(session.FromContext(c), FlashSuccess, MsgCreated)
	s.redirect(c, s.listURL(r))
}

func (s *Site) handleEditPage(c *gin.Context) {
	r, ok := s.resolveResource(c)
	if !ok {
		return
	}
	id := c.Param("id")
	rec, ok := s.loadRecord(c, r, id)
	if !ok {
		return
	}
	s.renderForm(c, r, id, buildFormFields(r.Fields(), fromRecord(rec), nil), "")
}

func (s *Site) handleEditSubmit(c *gin.Context) {
	r, ok := s.resolveResource(c)
	if !ok {
		return
	}
	id := c.Param("id")
	rec, ok := s.loadRecord(c, r, id)
	if !ok {
		return
	}
	raw, ok := s.postForm(c)
	if !ok || !s.checkCSRF(c, raw, s.editURL(r, id)) {
		return
	}

	fields := r.Fields()
	if errs := ValidateForm(fields, raw); len(errs) > 0 {
		s.renderForm(c, r, id, buildFormFields(fields, fromSubmission(raw, rec), errs), "")
		return
	}

	start := time.Now()
	_, err := r.DAO().Update(c.Request.Context(), id, CoerceForm(fields, raw))
	s.notify(c, Event{Action: ActionUpdate, Resource: r.Name(), RecordID: id, Duration: time.Since(start), Err: err})
	if errors.Is(err, ErrRecordNotFound) {
		s.recordNotFound(c, r, id)
		return
	}
	if err != nil {
		s.daoFailure(c, r, id, "update admin record", err)
		s.renderForm(c, r, id, buildFormFields(fields, fromSubmission(raw, rec), nil), MsgSaveFailed)
		return
	}

	SetFlash(session.FromContext(c), FlashSuccess, MsgUpdated)
	s.redirect(c, s.recordURL(r, id))
}

func (s *Site) handleDeletePage(c *gin.Context) {
	r, ok := s.resolveResource(c)
	if !ok {
		return
	}
	id := c.Param("id")
	rec, ok := s.loadRecord(c, r, id)
	if !ok {
		return
	}
	s.render(c, http.StatusOK, ViewConfirmDelete, map[string]any{
		"page_title": "Confirm Delete",
		"active_nav": r.Name(),
		"resource":   r,
		"record_id":  id,
		"rows":       detailRows(r, rec),
		"action":     s.deleteURL(r, id),
		"cancel_url": s.recordURL(r, id),
	})
}

func (s *Site) handleDeleteSubmit(c *gin.Context) {
	r, ok := s.resolveResource(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, ok := s.loadRecord(c, r, id); !ok {
		return
	}
	raw, ok := s.postForm(c)
	if !ok || !s.checkCSRF(c, raw, s.deleteURL(r, id)) {
		return
	}

	start := time.Now()
	err := r.DAO().Delete(c.Request.Context(), id)
	s.notify(c, Event{Action: ActionDelete, Resource: r.Name(), RecordID: id, Duration: time.Since(start), Err: err})
	if errors.Is(err, ErrRecordNotFound) {
		s.recordNotFound(c, r, id)
		return
	}
	sess := session.FromContext(c)
	if err != nil {
		s.daoFailure(c, r, id, "delete admin record", err)
		SetFlash(sess, FlashError, MsgDeleteFailed)
		s.redirect(c, s.recordURL(r, id))
		return
	}

	SetFlash(sess, FlashSuccess, MsgDeleted)
	s.redirect(c, s.listURL(r))
}
