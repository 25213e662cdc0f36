// Package web is the browser-facing presentation adapter of the survey. It
// maps form posts onto session commands and renders each step with templ
// components, as full pages or HTMX fragments.
package web

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors/i18n"
	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/id"
	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/timeouts"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/session"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/worklist"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/geocode"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/web/htmx"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/web/httpx"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/web/sessioncookie"
)

// DefaultMaxUploadBytes bounds one multipart item submission.
const DefaultMaxUploadBytes = 20 << 20

// Config wires the handler to its collaborators.
type Config struct {
	Definition questionnaire.Definition
	Registry   *Registry
	Cookies    *sessioncookie.Codec
	Sink       storage.SubmissionSink
	// Assets may be nil for surveys without file fields.
	Assets storage.AssetStore
	// Geocoder may be nil; location lookups then report no match.
	Geocoder       geocode.Resolver
	MaxUploadBytes int64
	// NewID overrides session id generation in tests.
	NewID func() (string, error)
}

type handler struct {
	def            questionnaire.Definition
	registry       *Registry
	cookies        *sessioncookie.Codec
	sink           storage.SubmissionSink
	assets         storage.AssetStore
	geocoder       geocode.Resolver
	maxUploadBytes int64
	newID          func() (string, error)
}

// NewHandler returns the survey routes wrapped in the standard middleware.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Registry == nil {
		return nil, errors.New("session registry is required")
	}
	if cfg.Cookies == nil {
		return nil, errors.New("session cookie codec is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("submission sink is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	h := &handler{
		def:            cfg.Definition,
		registry:       cfg.Registry,
		cookies:        cfg.Cookies,
		sink:           cfg.Sink,
		assets:         cfg.Assets,
		geocoder:       cfg.Geocoder,
		maxUploadBytes: cfg.MaxUploadBytes,
		newID:          cfg.NewID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleStep)
	mux.HandleFunc("POST /intake", h.handleIntake)
	mux.HandleFunc("POST /items", h.handleItem)
	mux.HandleFunc("POST /locations", h.handleLocation)
	mux.HandleFunc("POST /finalize", h.handleFinalize)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": cfg.Registry.Len()})
	})

	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		httpx.RequestLogger(log.Default()),
	), nil
}

// requestCopy resolves the printer and tag for the request language.
func requestCopy(r *http.Request) (language.Tag, *message.Printer) {
	tag := i18n.Match(r.Header.Get("Accept-Language"))
	return tag, i18n.Printer(tag)
}

func (h *handler) render(w http.ResponseWriter, r *http.Request, status int, body templ.Component) {
	title := h.def.Copy(h.def.Title, h.def.Country)
	tag, _ := requestCopy(r)
	htmx.RenderPage(w, r, status, body, layout(title, tag.String(), body), title)
}

// sessionID returns the verified id from the cookie, minting and setting a
// fresh one when create is true and none is present.
func (h *handler) sessionID(w http.ResponseWriter, r *http.Request, create bool) (string, bool, error) {
	if sessionID, ok := h.cookies.Read(r); ok {
		return sessionID, true, nil
	}
	if !create {
		return "", false, nil
	}
	sessionID, err := h.newID()
	if err != nil {
		return "", false, err
	}
	if err := h.cookies.Write(w, r, sessionID); err != nil {
		return "", false, err
	}
	return sessionID, true, nil
}

func (h *handler) handleStep(w http.ResponseWriter, r *http.Request) {
	sessionID, _, err := h.sessionID(w, r, true)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	machine, ok := h.registry.Lookup(sessionID)
	if !ok {
		_, p := requestCopy(r)
		h.render(w, r, http.StatusOK, intakeView(h.def, p, intakeValues{}, nil))
		return
	}
	h.renderMachine(w, r, http.StatusOK, machine, nil)
}

func (h *handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	sessionID, _, err := h.sessionID(w, r, true)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, apperrors.Wrap(apperrors.CodeValidationFailed, "parse intake form", err))
		return
	}
	values := intakeValues{
		ParticipantID:    r.PostForm.Get("participant_id"),
		BirthCountry:     r.PostForm.Get("birth_country"),
		ResidenceCountry: r.PostForm.Get("residence_country"),
		Privacy:          r.PostForm.Get("privacy"),
	}

	machine, err := h.registry.Open(r.Context(), sessionID)
	if err != nil {
		log.Printf("open session failed session_id=%s err=%v", sessionID, err)
		h.renderError(w, r, err)
		return
	}
	err = machine.SubmitIntake(session.Intake{
		ParticipantID:    values.ParticipantID,
		BirthCountry:     values.BirthCountry,
		ResidenceCountry: values.ResidenceCountry,
		Privacy:          values.Privacy,
	})
	var validationErr *questionnaire.ValidationError
	switch {
	case errors.As(err, &validationErr):
		_, p := requestCopy(r)
		h.render(w, r, http.StatusUnprocessableEntity, intakeView(h.def, p, values, h.problems(p, nil, validationErr)))
		return
	case errors.Is(err, session.ErrPhase):
		h.renderMachine(w, r, http.StatusConflict, machine, nil)
		return
	case err != nil:
		h.renderError(w, r, err)
		return
	}
	h.renderMachine(w, r, http.StatusOK, machine, nil)
}

func (h *handler) handleItem(w http.ResponseWriter, r *http.Request) {
	machine, ok := h.machine(w, r)
	if !ok {
		return
	}
	answers, err := h.readAnswers(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	err = machine.SubmitItem(answers)
	var validationErr *questionnaire.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.renderMachine(w, r, http.StatusUnprocessableEntity, machine, validationErr)
		return
	case errors.Is(err, session.ErrPhase):
		h.renderMachine(w, r, http.StatusConflict, machine, nil)
		return
	case err != nil:
		h.renderError(w, r, err)
		return
	}
	h.renderMachine(w, r, http.StatusOK, machine, nil)
}

func (h *handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	machine, ok := h.machine(w, r)
	if !ok {
		return
	}
	h.renderMachine(w, r, http.StatusOK, machine, nil)
}

func (h *handler) handleLocation(w http.ResponseWriter, r *http.Request) {
	tag, p := requestCopy(r)
	field, ok := locationField(h.def)
	if !ok {
		h.renderError(w, r, apperrors.New(apperrors.CodeNotFound, "survey has no location field"))
		return
	}
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderError(w, r, apperrors.Wrap(apperrors.CodeValidationFailed, "parse location form", err))
		return
	}
	text := strings.TrimSpace(r.FormValue(field.Name))
	if text == "" {
		htmx.RenderPage(w, r, http.StatusOK, locationView(p, nil, ""), nil, "")
		return
	}
	if h.geocoder == nil {
		htmx.RenderPage(w, r, http.StatusOK, locationView(p, nil, i18n.Format(tag, string(apperrors.CodeGeocodingUnresolved), nil)), nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Geocode)
	defer cancel()
	place, err := h.geocoder.Resolve(ctx, text)
	if err != nil {
		log.Printf("geocode unresolved query=%q err=%v", text, err)
		htmx.RenderPage(w, r, http.StatusOK, locationView(p, nil, i18n.Format(tag, string(apperrors.CodeGeocodingUnresolved), nil)), nil, "")
		return
	}
	htmx.RenderPage(w, r, http.StatusOK, locationView(p, &place, ""), nil, "")
}

// machine resolves the live session for r or renders why there is none.
func (h *handler) machine(w http.ResponseWriter, r *http.Request) (*session.Machine, bool) {
	sessionID, ok, _ := h.sessionID(w, r, false)
	if !ok {
		h.renderError(w, r, apperrors.New(apperrors.CodeSessionNotFound, "no session cookie"))
		return nil, false
	}
	machine, ok := h.registry.Lookup(sessionID)
	if !ok {
		sessioncookie.Clear(w, r)
		h.renderError(w, r, apperrors.New(apperrors.CodeSessionNotFound, "session expired"))
		return nil, false
	}
	return machine, true
}

// renderMachine renders the step the machine is on. A finished session is
// finalized first; finalize is idempotent once persisted.
func (h *handler) renderMachine(w http.ResponseWriter, r *http.Request, status int, machine *session.Machine, validationErr *questionnaire.ValidationError) {
	tag, p := requestCopy(r)
	view := machine.View()
	switch view.Phase {
	case session.PhaseAwaitingIntake:
		h.render(w, r, status, intakeView(h.def, p, intakeValues{}, nil))
	case session.PhaseInProgress:
		h.render(w, r, status, itemView(view, p, h.problems(p, view.Item, validationErr)))
	case session.PhaseFinished:
		report, err := machine.Finalize(r.Context(), h.sink, h.assets)
		if err != nil {
			log.Printf("finalize failed participant_id=%s err=%v", view.ParticipantID, err)
			status = apperrors.HTTPStatus(err)
		}
		h.render(w, r, status, finishedView(p, tag, report, err))
	}
}

// problems lists every missing or invalid field at once, labelled as the
// respondent saw them.
func (h *handler) problems(p *message.Printer, item *worklist.WorkItem, validationErr *questionnaire.ValidationError) []string {
	if validationErr == nil {
		return nil
	}
	country := h.def.Country
	if item != nil && h.def.Mode == questionnaire.ModeRating {
		country = item.ExpectedCountry
	}
	label := func(name string) string {
		if text, ok := intakeLabels[name]; ok {
			return p.Sprintf(text)
		}
		if field, ok := h.def.Field(name); ok {
			return h.def.Copy(field.Label, country)
		}
		return name
	}
	problems := make([]string, 0, len(validationErr.Missing)+len(validationErr.Invalid))
	for _, name := range validationErr.Missing {
		problems = append(problems, p.Sprintf(i18n.MsgMissingField, label(name)))
	}
	for _, name := range validationErr.Invalid {
		problems = append(problems, p.Sprintf(i18n.MsgInvalidField, label(name)))
	}
	return problems
}

var intakeLabels = map[string]string{
	"participant_id":    i18n.MsgParticipantID,
	"birth_country":     i18n.MsgBirthCountry,
	"residence_country": i18n.MsgResidence,
	"privacy":           i18n.MsgPrivacy,
}

func (h *handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	tag, _ := requestCopy(r)
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError && code == apperrors.CodeUnknown {
		log.Printf("request failed method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
	text := i18n.Format(tag, string(code), apperrors.MetadataOf(err))
	if code == apperrors.CodeUnknown {
		text = http.StatusText(status)
	}
	h.render(w, r, status, messageView(text))
}

// readAnswers maps the item form onto raw answers. The file field, when
// present, is read whole; coordinates come from the hidden inputs rendered
// by a location lookup.
func (h *handler) readAnswers(w http.ResponseWriter, r *http.Request) (questionnaire.Answers, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return questionnaire.Answers{}, apperrors.Wrap(apperrors.CodeValidationFailed, "parse item form", err)
	}
	answers := questionnaire.Answers{Values: map[string]string{}}
	for _, field := range h.def.Fields {
		switch field.Kind {
		case questionnaire.KindFile:
			payload, err := readFile(r, field.Name)
			if err != nil {
				return questionnaire.Answers{}, err
			}
			answers.Payload = payload
		case questionnaire.KindLocation:
			answers.Values[field.Name] = r.FormValue(field.Name)
			answers.Location = readLocation(r, answers.Values[field.Name])
		default:
			answers.Values[field.Name] = r.FormValue(field.Name)
		}
	}
	return answers, nil
}

func readFile(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidationFailed, "read upload", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidationFailed, "read upload", err)
	}
	return data, nil
}

func readLocation(r *http.Request, text string) *questionnaire.Location {
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(r.FormValue(latInput)), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(r.FormValue(lngInput)), 64)
	if latErr != nil || lngErr != nil || !questionnaire.ValidCoordinates(lat, lng) {
		return nil
	}
	return &questionnaire.Location{
		Text: strings.TrimSpace(text),
		Lat:  &lat,
		Lng:  &lng,
		Name: strings.TrimSpace(r.FormValue(placeNameInput)),
	}
}

func locationField(def questionnaire.Definition) (questionnaire.Field, bool) {
	for _, field := range def.Fields {
		if field.Kind == questionnaire.KindLocation {
			return field, true
		}
	}
	return questionnaire.Field{}, false
}
