package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors/i18n"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/session"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/geocode"
)

const (
	surveyTargetID   = "survey"
	locationTargetID = "location-result"

	latInput       = "lat"
	lngInput       = "lng"
	placeNameInput = "place_name"
)

// htmxConfig lets 422 responses swap so validation messages replace the form.
const htmxConfig = `{"responseHandling":[{"code":"204","swap":false},{"code":"[23]..","swap":true},{"code":"422","swap":true},{"code":"[45]..","swap":true,"error":true}]}`

// htmlWriter keeps the first write error so views read top to bottom.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, part := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, part)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func component(render func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		render(h)
		return h.err
	})
}

// layout wraps body in the full document shell.
func layout(title, lang string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<!doctype html><html")
		h.attr("lang", lang)
		h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<meta name="htmx-config"`)
		h.attr("content", htmxConfig)
		h.raw(`><title>`)
		h.text(title)
		h.raw(`</title><script src="https://unpkg.com/htmx.org@2.0.4" defer></script></head><body><main`)
		h.attr("id", surveyTargetID)
		h.raw(">")
		if h.err != nil {
			return h.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		h.raw("</main></body></html>")
		return h.err
	})
}

func problemList(h *htmlWriter, problems []string) {
	if len(problems) == 0 {
		return
	}
	h.raw(`<ul class="problems" role="alert">`)
	for _, problem := range problems {
		h.raw("<li>")
		h.text(problem)
		h.raw("</li>")
	}
	h.raw("</ul>")
}

func formOpen(h *htmlWriter, action string, multipart bool) {
	h.raw("<form")
	h.attr("method", "post")
	h.attr("action", action)
	h.attr("hx-post", action)
	h.attr("hx-target", "#"+surveyTargetID)
	if multipart {
		h.attr("enctype", "multipart/form-data")
		h.attr("hx-encoding", "multipart/form-data")
	}
	h.raw(">")
}

func submitButton(h *htmlWriter, label string) {
	h.raw(`<button type="submit">`)
	h.text(label)
	h.raw("</button></form>")
}

// intakeValues is the consent form as last submitted.
type intakeValues struct {
	ParticipantID    string
	BirthCountry     string
	ResidenceCountry string
	Privacy          string
}

func intakeView(def questionnaire.Definition, p *message.Printer, values intakeValues, problems []string) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<h1>")
		h.text(def.Copy(def.Title, def.Country))
		h.raw("</h1>")
		if intro := strings.TrimSpace(def.Copy(def.Intro, def.Country)); intro != "" {
			h.raw("<p>")
			h.text(intro)
			h.raw("</p>")
		}
		problemList(h, problems)
		formOpen(h, "/intake", false)
		for _, input := range []struct {
			name  string
			label string
			value string
		}{
			{name: "participant_id", label: p.Sprintf(i18n.MsgParticipantID), value: values.ParticipantID},
			{name: "birth_country", label: p.Sprintf(i18n.MsgBirthCountry), value: values.BirthCountry},
			{name: "residence_country", label: p.Sprintf(i18n.MsgResidence), value: values.ResidenceCountry},
		} {
			h.raw("<label")
			h.attr("for", input.name)
			h.raw(">")
			h.text(input.label)
			h.raw("</label><input")
			h.attr("type", "text")
			h.attr("id", input.name)
			h.attr("name", input.name)
			h.attr("maxlength", strconv.Itoa(session.MaxIntakeLength))
			h.attr("value", input.value)
			h.raw(">")
		}
		if def.RequiresPrivacy() {
			h.raw("<fieldset><legend>")
			h.text(p.Sprintf(i18n.MsgPrivacy))
			h.raw("</legend>")
			for _, option := range def.PrivacyOptions {
				h.raw(`<label><input type="radio" name="privacy"`)
				h.attr("value", option)
				if option == values.Privacy {
					h.raw(" checked")
				}
				h.raw(">")
				h.text(option)
				h.raw("</label>")
			}
			h.raw("</fieldset>")
		}
		submitButton(h, p.Sprintf(i18n.MsgStart))
	})
}

func itemView(view session.StepView, p *message.Printer, problems []string) templ.Component {
	def := view.Definition
	country := def.Country
	if view.Item != nil && def.Mode == questionnaire.ModeRating {
		country = view.Item.ExpectedCountry
	}
	return component(func(h *htmlWriter) {
		h.raw("<h1>")
		h.text(def.Copy(def.Title, country))
		h.raw("</h1><p class=\"progress\">")
		if def.Mode == questionnaire.ModeProcurement {
			h.text(p.Sprintf(i18n.MsgUploadSlot, view.Index+1))
		} else {
			h.text(p.Sprintf(i18n.MsgProgress, view.Index+1, view.Total))
		}
		h.raw("</p>")
		if view.Item != nil && def.Mode == questionnaire.ModeRating {
			h.raw("<figure><img")
			h.attr("src", view.Item.Reference)
			h.attr("alt", country)
			h.raw("><figcaption>")
			h.text(country)
			h.raw("</figcaption></figure>")
		}
		problemList(h, problems)
		formOpen(h, "/items", def.Mode == questionnaire.ModeProcurement)
		for _, field := range def.Fields {
			fieldInput(h, def, field, country, view.Answers, p)
		}
		submitButton(h, p.Sprintf(i18n.MsgNext))
	})
}

func fieldInput(h *htmlWriter, def questionnaire.Definition, field questionnaire.Field, country string, answers questionnaire.Answers, p *message.Printer) {
	h.raw("<div")
	h.attr("class", "field field-"+string(field.Kind))
	if field.Gate != nil {
		values := make([]string, 0, len(field.Gate.Values))
		for _, v := range field.Gate.Values {
			values = append(values, strconv.Itoa(v))
		}
		h.attr("data-gate-field", field.Gate.Field)
		h.attr("data-gate-values", strings.Join(values, ","))
	}
	h.raw("><label")
	h.attr("for", field.Name)
	h.raw(">")
	h.text(def.Copy(field.Label, country))
	h.raw("</label>")
	if help := strings.TrimSpace(field.Help); help != "" {
		h.raw(`<small>`)
		h.text(def.Copy(help, country))
		h.raw("</small>")
	}

	value := answers.Value(field.Name)
	switch field.Kind {
	case questionnaire.KindChoice:
		h.raw("<select")
		h.attr("id", field.Name)
		h.attr("name", field.Name)
		h.raw(`><option value="">`)
		h.text(questionnaire.NoSelection)
		h.raw("</option>")
		for _, option := range field.Options {
			raw := strconv.Itoa(option.Value)
			h.raw("<option")
			h.attr("value", raw)
			if raw == strings.TrimSpace(value) {
				h.raw(" selected")
			}
			h.raw(">")
			h.text(def.Copy(option.Label, country))
			h.raw("</option>")
		}
		h.raw("</select>")
	case questionnaire.KindText:
		h.raw("<textarea")
		h.attr("id", field.Name)
		h.attr("name", field.Name)
		h.raw(">")
		h.text(value)
		h.raw("</textarea>")
	case questionnaire.KindLocation:
		h.raw("<input")
		h.attr("type", "text")
		h.attr("id", field.Name)
		h.attr("name", field.Name)
		h.attr("value", value)
		h.raw("><button")
		h.attr("type", "button")
		h.attr("hx-post", "/locations")
		h.attr("hx-include", "closest form")
		h.attr("hx-target", "#"+locationTargetID)
		h.raw(">")
		h.text(p.Sprintf(i18n.MsgFindLocation))
		h.raw("</button>")
		var place *geocode.Place
		if loc := answers.Location; loc.HasCoordinates() {
			place = &geocode.Place{Lat: *loc.Lat, Lng: *loc.Lng, Name: loc.Name}
		}
		locationResult(h, p, place, "")
	case questionnaire.KindFile:
		h.raw("<input")
		h.attr("type", "file")
		h.attr("id", field.Name)
		h.attr("name", field.Name)
		h.attr("accept", "image/*")
		h.raw(">")
	}
	h.raw("</div>")
}

// locationResult renders the resolved coordinates as hidden inputs so they
// travel with the item form, or a message when nothing is resolved.
func locationResult(h *htmlWriter, p *message.Printer, place *geocode.Place, note string) {
	h.raw("<div")
	h.attr("id", locationTargetID)
	h.raw(">")
	switch {
	case place != nil:
		lat := strconv.FormatFloat(place.Lat, 'f', -1, 64)
		lng := strconv.FormatFloat(place.Lng, 'f', -1, 64)
		for _, hidden := range [][2]string{{latInput, lat}, {lngInput, lng}, {placeNameInput, place.Name}} {
			h.raw(`<input type="hidden"`)
			h.attr("name", hidden[0])
			h.attr("value", hidden[1])
			h.raw(">")
		}
		h.raw("<p>")
		h.text(p.Sprintf(i18n.MsgLocationFound, place.Name, place.Lat, place.Lng))
		h.raw("</p>")
	case note != "":
		h.raw(`<p role="alert">`)
		h.text(note)
		h.raw("</p>")
	default:
		h.raw("<p>")
		h.text(p.Sprintf(i18n.MsgLocationMissing))
		h.raw("</p>")
	}
	h.raw("</div>")
}

func locationView(p *message.Printer, place *geocode.Place, note string) templ.Component {
	return component(func(h *htmlWriter) {
		locationResult(h, p, place, note)
	})
}

// finishedView renders the outcome of Finalize. Only a failed save offers
// the retry form; other errors are shown with the copy for their code.
func finishedView(p *message.Printer, tag language.Tag, report session.Report, finalizeErr error) templ.Component {
	return component(func(h *htmlWriter) {
		code := apperrors.CodeOf(finalizeErr)
		if finalizeErr == nil && !report.Persisted {
			code = apperrors.CodePersistenceFailed
		}
		if finalizeErr != nil || code == apperrors.CodePersistenceFailed {
			h.raw(`<p role="alert">`)
			if code == apperrors.CodeUnknown {
				h.text(http.StatusText(code.HTTPStatus()))
			} else {
				h.text(i18n.Format(tag, string(code), apperrors.MetadataOf(finalizeErr)))
			}
			h.raw("</p>")
			if code == apperrors.CodePersistenceFailed {
				formOpen(h, "/finalize", false)
				submitButton(h, p.Sprintf(i18n.MsgRetry))
			}
			return
		}
		h.raw("<h1>")
		h.text(p.Sprintf(i18n.MsgComplete))
		h.raw("</h1>")
		if report.Total > 0 {
			h.raw("<p>")
			h.text(p.Sprintf(i18n.MsgAssetsUploaded, report.Uploaded, report.Total))
			h.raw("</p>")
		}
		var problems []string
		for _, failure := range report.Failed {
			problems = append(problems, i18n.Format(tag, string(apperrors.CodeUploadFailed), map[string]string{
				"Key":    failure.Key,
				"Status": fmt.Sprint(failure.Status),
			}))
		}
		problemList(h, problems)
	})
}

func messageView(text string) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<p role="alert">`)
		h.text(text)
		h.raw("</p>")
	})
}
