package storage

import "github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"

// Document renders a submission in the persisted document shape shared by
// every sink.
func Document(sub Submission) map[string]any {
	doc := map[string]any{
		"prolific_id":          sub.ParticipantID,
		"birth_country":        sub.Consent.BirthCountry,
		"country_of_residence": sub.Consent.ResidenceCountry,
		"timestamp":            sub.Timestamp.UTC(),
	}
	if sub.Mode == questionnaire.ModeProcurement {
		doc["privacy"] = sub.Consent.Privacy
	}
	responses := make([]any, 0, len(sub.Responses))
	for _, record := range sub.Responses {
		responses = append(responses, response(sub, record))
	}
	doc["responses"] = responses
	return doc
}

func response(sub Submission, record questionnaire.AnswerRecord) map[string]any {
	out := map[string]any{
		"name":          record.ParticipantID,
		"birth_country": record.Consent.BirthCountry,
		"residence":     record.Consent.ResidenceCountry,
	}
	for _, name := range sub.Fields {
		out[name] = nil
	}
	for name, v := range record.Choices {
		out[name] = v
	}
	for name, text := range record.Texts {
		out[name] = text
	}

	switch sub.Mode {
	case questionnaire.ModeProcurement:
		out["privacy"] = record.Consent.Privacy
		ref := record.AssetReference
		if ref == "" {
			ref = record.AssetKey
		}
		out["image_url"] = ref
		out["upload_status"] = string(record.AssetStatus)
	default:
		out["image"] = record.ItemReference
		out["country"] = record.ExpectedCountry
	}

	if loc := record.Location; loc != nil {
		out["location"] = loc.Text
		if loc.HasCoordinates() {
			out["coords"] = map[string]any{
				"lat":  *loc.Lat,
				"lng":  *loc.Lng,
				"name": loc.Name,
			}
		}
	}
	return out
}
