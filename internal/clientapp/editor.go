package clientapp

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/phillip-england/cafesuite/internal/cafeapi"
	"github.com/phillip-england/cafesuite/internal/domain"
	"github.com/phillip-england/cafesuite/internal/forms"
)

// maxFormBody bounds a form post: the logo plus room for the text fields.
const maxFormBody = forms.MaxLogoBytes + 1<<20

// editor binds a record kind to its routes, loader and save call.
type editor struct {
	schema  forms.Schema
	base    string
	noun    string
	tmpl    *template.Template
	load    func(ctx context.Context, id string) (forms.Values, bool, error)
	prefill func(r *http.Request) forms.Values
	save    func(form *forms.Form, savedID *string) forms.SaveFunc
	options func(ctx context.Context, selected string) ([]optionView, error)
}

type formView struct {
	Token       string
	Heading     string
	Mode        string
	Action      string
	LeaveAction string
	ListURL     string
	Fields      []fieldView
	CanSubmit   bool
	Guard       bool
	AllowsLogo  bool
	Logo        logoView
	LeaveOpen   bool
	Next        string
}

type fieldView struct {
	Name     string
	Label    string
	Input    string
	Value    string
	Error    string
	Required bool
	Options  []optionView
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type logoView struct {
	ThumbURL string
	Pending  string
}

func (s *server) cafeEditor() editor {
	return editor{
		schema: forms.CafeSchema,
		base:   "/cafes",
		noun:   "Café",
		tmpl:   s.cafeForm,
		load: func(ctx context.Context, id string) (forms.Values, bool, error) {
			cafe, ok, err := s.cache.Cafe(ctx, id)
			if err != nil || !ok {
				return nil, ok, err
			}
			return forms.CafeValues(cafe), true, nil
		},
		save: func(form *forms.Form, savedID *string) forms.SaveFunc {
			return func(ctx context.Context, values forms.Values) error {
				in := forms.CafeInput(values)
				var (
					cafe domain.Cafe
					err  error
				)
				if form.Mode() == forms.Edit {
					in.ID = form.RecordID()
					cafe, err = s.api.UpdateCafe(ctx, in)
				} else {
					cafe, err = s.api.CreateCafe(ctx, in)
				}
				*savedID = cafe.ID
				return err
			}
		},
	}
}

func (s *server) employeeEditor() editor {
	return editor{
		schema: forms.EmployeeSchema,
		base:   "/employees",
		noun:   "Employee",
		tmpl:   s.emplForm,
		load: func(ctx context.Context, id string) (forms.Values, bool, error) {
			employee, ok, err := s.cache.Employee(ctx, id)
			if err != nil || !ok {
				return nil, ok, err
			}
			return forms.EmployeeValues(employee), true, nil
		},
		prefill: func(r *http.Request) forms.Values {
			return forms.Values{"cafe_id": strings.TrimSpace(r.URL.Query().Get("cafeId"))}
		},
		save: func(form *forms.Form, savedID *string) forms.SaveFunc {
			return func(ctx context.Context, values forms.Values) error {
				in := forms.EmployeeInput(values)
				var (
					employee domain.Employee
					err      error
				)
				if form.Mode() == forms.Edit {
					in.ID = form.RecordID()
					employee, err = s.api.UpdateEmployee(ctx, in)
				} else {
					employee, err = s.api.CreateEmployee(ctx, in)
				}
				*savedID = employee.ID
				return err
			}
		},
		options: s.cafeOptions,
	}
}

func (s *server) cafeFormPage(w http.ResponseWriter, r *http.Request) {
	s.formPage(w, r, s.cafeEditor())
}

func (s *server) submitCafeForm(w http.ResponseWriter, r *http.Request) {
	s.submitForm(w, r, s.cafeEditor())
}

func (s *server) leaveCafeForm(w http.ResponseWriter, r *http.Request) {
	s.leaveForm(w, r, s.cafeEditor())
}

func (s *server) employeeFormPage(w http.ResponseWriter, r *http.Request) {
	s.formPage(w, r, s.employeeEditor())
}

func (s *server) submitEmployeeForm(w http.ResponseWriter, r *http.Request) {
	s.submitForm(w, r, s.employeeEditor())
}

func (s *server) leaveEmployeeForm(w http.ResponseWriter, r *http.Request) {
	s.leaveForm(w, r, s.employeeEditor())
}

func (s *server) uploadLogo(ctx context.Context, data []byte, filename string) (string, error) {
	uploaded, err := s.api.UploadLogo(ctx, data, filename)
	if err != nil {
		return "", err
	}
	return uploaded.FilePath, nil
}

func (s *server) cafeOptions(ctx context.Context, selected string) ([]optionView, error) {
	cafes, err := s.cache.Cafes(ctx, "")
	options := []optionView{{Value: "", Label: "Unassigned", Selected: selected == ""}}
	if err != nil {
		return options, err
	}
	cafes = append([]domain.Cafe(nil), cafes...)
	sort.SliceStable(cafes, func(i, j int) bool {
		return strings.ToLower(cafes[i].Name) < strings.ToLower(cafes[j].Name)
	})
	for _, cafe := range cafes {
		label := cafe.Name
		if cafe.Location != "" {
			label += " (" + cafe.Location + ")"
		}
		options = append(options, optionView{Value: cafe.ID, Label: label, Selected: cafe.ID == selected})
	}
	return options, nil
}

func formMode(r *http.Request) (forms.Mode, string) {
	if id := strings.TrimSpace(r.PathValue("id")); id != "" {
		return forms.Edit, id
	}
	return forms.Create, ""
}

func (ed editor) owns(form *forms.Form, mode forms.Mode, id string) bool {
	return form.Schema().Kind == ed.schema.Kind && form.Mode() == mode && form.RecordID() == id
}

func (ed editor) formURL(mode forms.Mode, id string) string {
	if mode == forms.Edit {
		return ed.base + "/edit/" + url.PathEscape(id)
	}
	return ed.base + "/add"
}

// openForm registers a fresh form for the request. The bool is false when
// a response has already been written.
func (s *server) openForm(w http.ResponseWriter, r *http.Request, ed editor, mode forms.Mode, id string) (*forms.Form, bool) {
	var initial forms.Values
	if mode == forms.Edit {
		values, ok, err := ed.load(r.Context(), id)
		if err != nil {
			s.log.Warn("load record failed", "kind", ed.schema.Kind, "id", id, "error", err)
			redirectWithNotice(w, r, ed.base, "error", cafeapi.Message(err, "Unable to load "+strings.ToLower(ed.noun)))
			return nil, false
		}
		if !ok {
			redirectWithNotice(w, r, ed.base, "error", ed.noun+" not found")
			return nil, false
		}
		initial = values
	} else if ed.prefill != nil {
		initial = ed.prefill(r)
	}

	form := s.forms.Open(ed.schema, mode, id, initial)
	token := form.Token()
	form.OnTransition = func(from, to forms.State) {
		s.log.Debug("form state", "form", token, "kind", ed.schema.Kind, "from", from.String(), "to", to.String())
	}
	return form, true
}

// lookupForm returns the form named by token when it belongs to this
// route; otherwise a fresh one is opened.
func (s *server) lookupForm(w http.ResponseWriter, r *http.Request, ed editor, token string) (*forms.Form, bool) {
	mode, id := formMode(r)
	if token != "" {
		if form, ok := s.forms.Get(token); ok && ed.owns(form, mode, id) {
			return form, true
		}
	}
	return s.openForm(w, r, ed, mode, id)
}

func (s *server) formPage(w http.ResponseWriter, r *http.Request, ed editor) {
	form, ok := s.lookupForm(w, r, ed, strings.TrimSpace(r.URL.Query().Get("form")))
	if !ok {
		return
	}
	s.renderForm(w, r, ed, form, http.StatusOK, "", false, "")
}

func (s *server) parseFormPost(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	err := r.ParseMultipartForm(maxFormBody)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// postedValues collects the visible fields of the schema from the post.
// Hidden fields stay server-side.
func postedValues(schema forms.Schema, posted url.Values) forms.Values {
	values := forms.Values{}
	for _, field := range schema.Fields {
		if field.Input == "hidden" {
			continue
		}
		if vals, ok := posted[field.Name]; ok && len(vals) > 0 {
			values[field.Name] = vals[0]
		}
	}
	return values
}

// applyPost copies the post into the form and marks it touched when the
// browser reported a change event.
func applyPost(form *forms.Form, r *http.Request) error {
	if err := form.Apply(postedValues(form.Schema(), r.PostForm)); err != nil {
		return err
	}
	if r.PostForm.Get("touched") == "1" {
		return form.Touch()
	}
	return nil
}

func (s *server) submitForm(w http.ResponseWriter, r *http.Request, ed editor) {
	mode, id := formMode(r)
	if err := s.parseFormPost(w, r); err != nil {
		redirectWithNotice(w, r, ed.formURL(mode, id), "error", "The upload is too large or malformed")
		return
	}
	form, ok := s.lookupForm(w, r, ed, r.PostForm.Get("form_token"))
	if !ok {
		return
	}

	if err := applyPost(form, r); err != nil {
		s.formUnavailable(w, r, ed, form, err)
		return
	}

	if ed.schema.AllowsLogo && r.MultipartForm != nil {
		if file, header, err := r.FormFile("logo"); err == nil {
			data, readErr := io.ReadAll(io.LimitReader(file, forms.MaxLogoBytes+1))
			_ = file.Close()
			if readErr != nil {
				s.renderForm(w, r, ed, form, http.StatusBadRequest, "Unable to read the selected file", false, "")
				return
			}
			if len(data) > 0 {
				if err := form.SelectLogo(data, header.Filename); err != nil {
					var logoErr *forms.LogoError
					if errors.As(err, &logoErr) {
						s.renderForm(w, r, ed, form, http.StatusUnprocessableEntity, logoErr.Reason, false, "")
						return
					}
					s.formUnavailable(w, r, ed, form, err)
					return
				}
			}
		}
	}

	var savedID string
	err := form.Submit(r.Context(), s.uploadLogo, ed.save(form, &savedID))
	var validationErr *forms.ValidationError
	switch {
	case err == nil:
		// The saved form stays registered until swept so a repeated post of
		// the same token is refused instead of saved twice.
		s.cache.Invalidate(domain.KindCafe, domain.KindEmployee)
		verb := "created"
		if mode == forms.Edit {
			verb = "updated"
		}
		s.log.Info("record saved", "kind", ed.schema.Kind, "mode", mode.String(), "id", savedID)
		redirectWithNotice(w, r, ed.base, "success", ed.noun+" "+verb)
	case errors.Is(err, forms.ErrNotDirty):
		s.renderForm(w, r, ed, form, http.StatusOK, "There are no changes to save", false, "")
	case errors.As(err, &validationErr):
		s.renderForm(w, r, ed, form, http.StatusUnprocessableEntity, "Please fix the highlighted fields", false, "")
	case errors.Is(err, forms.ErrSubmitting), errors.Is(err, forms.ErrClosed):
		s.formUnavailable(w, r, ed, form, err)
	default:
		s.log.Warn("save failed", "kind", ed.schema.Kind, "mode", mode.String(), "id", id, "error", err)
		s.renderForm(w, r, ed, form, http.StatusOK, cafeapi.Message(err, "Unable to save "+strings.ToLower(ed.noun)+". Please try again."), false, "")
	}
}

// leaveForm handles cancel and menu navigation away from a form. A dirty
// form asks first; "stay" returns to the form with its values, "leave"
// discards them.
func (s *server) leaveForm(w http.ResponseWriter, r *http.Request, ed editor) {
	mode, id := formMode(r)
	if err := s.parseFormPost(w, r); err != nil {
		http.Redirect(w, r, ed.base, http.StatusSeeOther)
		return
	}
	next := localTarget(r.PostForm.Get("next"), ed.base)
	token := r.PostForm.Get("form_token")
	form, ok := s.forms.Get(token)
	if !ok || !ed.owns(form, mode, id) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	switch r.PostForm.Get("confirm") {
	case "leave":
		if err := form.Discard(); err != nil {
			s.renderForm(w, r, ed, form, http.StatusConflict, "This form is being saved and cannot be discarded", false, "")
			return
		}
		s.forms.Remove(token)
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	case "stay":
		http.Redirect(w, r, ed.formURL(mode, id)+"?form="+url.QueryEscape(token), http.StatusSeeOther)
		return
	}

	if err := applyPost(form, r); err != nil {
		s.formUnavailable(w, r, ed, form, err)
		return
	}
	if !form.NeedsLeaveConfirm() {
		if err := form.Discard(); err == nil {
			s.forms.Remove(token)
		}
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.renderForm(w, r, ed, form, http.StatusOK, "", true, next)
}

func (s *server) formUnavailable(w http.ResponseWriter, r *http.Request, ed editor, form *forms.Form, err error) {
	s.log.Debug("form not editable", "kind", ed.schema.Kind, "state", form.State().String(), "error", err)
	switch {
	case errors.Is(err, forms.ErrSubmitting):
		s.renderForm(w, r, ed, form, http.StatusConflict, "This form is already being saved", false, "")
	case form.State() == forms.Succeeded:
		redirectWithNotice(w, r, ed.base, "error", "This form has already been saved")
	default:
		redirectWithNotice(w, r, ed.base, "error", "This form was closed. Please start again.")
	}
}

func (s *server) renderForm(w http.ResponseWriter, r *http.Request, ed editor, form *forms.Form, status int, notice string, leaveOpen bool, next string) {
	mode := form.Mode()
	heading := "Add " + ed.noun
	if mode == forms.Edit {
		heading = "Edit " + ed.noun
	}
	data := newPage(r, heading)
	if notice != "" {
		data.Error = notice
		data.Success = ""
	}

	values := form.Values()
	errs := form.Errors()
	view := &formView{
		Token:       form.Token(),
		Heading:     heading,
		Mode:        mode.String(),
		Action:      ed.formURL(mode, form.RecordID()),
		LeaveAction: ed.formURL(mode, form.RecordID()) + "/leave",
		ListURL:     ed.base,
		CanSubmit:   form.CanSubmit(),
		Guard:       form.GuardArmed(),
		AllowsLogo:  ed.schema.AllowsLogo,
		LeaveOpen:   leaveOpen,
		Next:        next,
	}
	for _, field := range ed.schema.Fields {
		if field.Input == "hidden" {
			continue
		}
		fv := fieldView{
			Name:     field.Name,
			Label:    field.Label,
			Input:    field.Input,
			Value:    values[field.Name],
			Error:    errs[field.Name],
			Required: field.Required,
		}
		switch field.Input {
		case "radio":
			for _, g := range []domain.Gender{domain.GenderMale, domain.GenderFemale} {
				fv.Options = append(fv.Options, optionView{Value: string(g), Label: string(g), Selected: values[field.Name] == string(g)})
			}
		case "select":
			if ed.options != nil {
				options, err := ed.options(r.Context(), values[field.Name])
				if err != nil {
					s.log.Warn("load form options failed", "field", field.Name, "error", err)
					if data.Error == "" {
						data.Error = "Unable to load cafés for selection"
					}
				}
				fv.Options = options
			}
		}
		view.Fields = append(view.Fields, fv)
	}
	if ed.schema.AllowsLogo {
		if current := values["logo_url"]; current != "" {
			view.Logo.ThumbURL = "/cafes/logo?" + url.Values{"path": {current}}.Encode()
		}
		if pending, ok := form.PendingLogo(); ok {
			view.Logo.Pending = pending.Filename
		}
	}
	data.Form = view
	s.render(w, status, ed.tmpl, data)
}
