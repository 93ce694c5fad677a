// internal/portal/api/wizard.go
package api

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/evidence"
	"agritour-certification/internal/portal/wizard"
)

const uploadField = "files"

// openWizard resolves the signed-in applicant's wizard or writes the error.
func (s *Server) openWizard(w http.ResponseWriter, r *http.Request) (*wizard.Wizard, bool) {
	user, err := requireUser(r, "")
	if err != nil {
		writeError(w, s.logger, err)
		return nil, false
	}
	wiz, err := s.deps.Wizards.Open(r.Context(), user.ID)
	if err != nil {
		writeError(w, s.logger, err)
		return nil, false
	}
	return wiz, true
}

// wizardSections answers 200 with an empty list while the catalog loads, and
// 503 once the load has failed or come back empty.
func (s *Server) wizardSections(w http.ResponseWriter, r *http.Request) {
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	view, err := wiz.Sections()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Sections", sectionsResponse{
		State:              view.State,
		Sections:           view.Sections,
		VisibleQuestionIDs: view.VisibleQuestionIDs,
		Ready:              view.State == catalog.StateLoaded,
	})
}

func (s *Server) wizardForm(w http.ResponseWriter, r *http.Request) {
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "Form", wiz.View())
}

func (s *Server) updateBasicInfo(w http.ResponseWriter, r *http.Request) {
	var req basicInfoRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	if err := wiz.UpdateBasicInfo(req.toModel()); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Basic info updated", wiz.View())
}

func (s *Server) setScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	raw, err := req.raw()
	if err != nil {
		writeBadRequest(w, "score must be a number, a numeric string or null")
		return
	}
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	answer, err := wiz.SetScore(chi.URLParam(r, "questionID"), raw)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Score saved", answer)
}

func (s *Server) setNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	answer, err := wiz.SetNote(chi.URLParam(r, "questionID"), req.Note)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Note saved", answer)
}

func (s *Server) addAttachments(w http.ResponseWriter, r *http.Request) {
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	uploads, closeAll, err := s.readUploads(w, r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	defer closeAll()

	answer, err := wiz.AddAttachments(r.Context(), chi.URLParam(r, "questionID"), uploads...)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Attachments added", answer)
}

func (s *Server) removeAttachment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "attachment index must be a number")
		return
	}
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	answer, err := wiz.RemoveAttachment(r.Context(), chi.URLParam(r, "questionID"), index)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Attachment removed", answer)
}

func (s *Server) addDocuments(w http.ResponseWriter, r *http.Request) {
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	uploads, closeAll, err := s.readUploads(w, r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	defer closeAll()

	docs, err := wiz.AddDocuments(r.Context(), uploads...)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Documents added", docs)
}

func (s *Server) setChecklist(w http.ResponseWriter, r *http.Request) {
	var req checklistRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	if err := wiz.SetChecklist(chi.URLParam(r, "itemID"), *req.Checked); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Checklist updated", wiz.View())
}

func (s *Server) setConfirmed(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	if err := wiz.SetConfirmed(*req.Confirmed); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Declaration updated", wiz.View())
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	sum, err := wiz.Summary()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Summary", sum)
}

// saveDraft saves the draft, moving to the given step first when one is sent.
func (s *Server) saveDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}

	var err error
	var res interface{}
	if req.Step != "" {
		res, err = wiz.GoTo(r.Context(), wizard.Step(req.Step))
	} else {
		res, err = wiz.SaveDraft(r.Context())
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Draft saved", res)
}

func (s *Server) resetDraft(w http.ResponseWriter, r *http.Request) {
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	if err := wiz.Reset(r.Context()); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Form reset", wiz.View())
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	wiz, ok := s.openWizard(w, r)
	if !ok {
		return
	}
	res, err := wiz.Submit(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, "Application submitted", res)
}

// readUploads parses the multipart body. closeAll releases every opened part.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]evidence.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return nil, func() {}, errors.NewAssessmentValidationError("upload could not be read: " + err.Error())
	}

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		_ = r.MultipartForm.RemoveAll()
		return nil, func() {}, errors.NewAssessmentValidationError("no files in field " + uploadField)
	}

	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	uploads := make([]evidence.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, errors.NewAssessmentValidationError("upload could not be opened: " + fh.Filename)
		}
		files = append(files, f)
		uploads = append(uploads, evidence.Upload{FileName: fh.Filename, Content: f})
	}
	return uploads, closeAll, nil
}
