package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
)

// AssetFailure reports one upload that did not succeed.
type AssetFailure struct {
	Key       string
	ItemIndex int
	// Status is the store's response status, or 0 when no response arrived.
	Status int
	Err    error
}

// Report summarizes a finalize attempt.
type Report struct {
	// Uploaded counts assets stored across every attempt so far.
	Uploaded int
	// Total counts assets the session produced.
	Total     int
	Failed    []AssetFailure
	Persisted bool
}

// Degraded reports a completion in which some assets were not stored.
func (r Report) Degraded() bool {
	return r.Uploaded < r.Total
}

// Finalize uploads pending assets one at a time, then upserts the response
// set once. Upload failures are reported but do not stop the upsert. After a
// successful upsert further calls return the same report without I/O. A
// failed upsert is returned as PERSISTENCE_FAILED and may be retried; assets
// uploaded on an earlier attempt are not sent again.
func (m *Machine) Finalize(ctx context.Context, sink storage.SubmissionSink, assets storage.AssetStore) (Report, error) {
	m.finalizeMu.Lock()
	defer m.finalizeMu.Unlock()

	if m.report != nil {
		return cloneReport(*m.report), nil
	}

	snapshot := m.State()
	if snapshot.Phase != PhaseFinished {
		return Report{}, fmt.Errorf("%w: finalize requires a finished session, got %s", ErrPhase, snapshot.Phase)
	}
	if sink == nil {
		return Report{}, apperrors.New(apperrors.CodePersistenceFailed, "no submission sink configured")
	}

	ctx, span := m.tracer.Start(ctx, "survey.finalize", trace.WithAttributes(
		attribute.String("survey.id", m.env.Definition.ID),
		attribute.String("survey.collection", m.env.Definition.Collection),
		attribute.Int("survey.responses", len(snapshot.Committed)),
		attribute.Int("survey.pending_assets", len(snapshot.PendingAssets)),
	))
	defer span.End()

	var report Report
	for _, asset := range snapshot.PendingAssets {
		ref, err := m.upload(ctx, assets, asset)
		if err != nil {
			failure := AssetFailure{Key: asset.Key, ItemIndex: asset.ItemIndex, Err: err}
			var uploadErr *storage.UploadError
			if errors.As(err, &uploadErr) {
				failure.Status = uploadErr.Status
			}
			report.Failed = append(report.Failed, failure)
			log.Printf("survey finalize: asset upload failed participant=%s key=%s status=%d err=%v",
				snapshot.ParticipantID, asset.Key, failure.Status, err)
			if recErr := m.execute(Command{Type: CommandTypeRecordUploadFailure, AssetKey: asset.Key}); recErr != nil {
				return report, recErr
			}
			continue
		}
		if recErr := m.execute(Command{Type: CommandTypeRecordUpload, AssetKey: asset.Key, AssetReference: ref}); recErr != nil {
			return report, recErr
		}
	}

	snapshot = m.State()
	report.Uploaded = len(snapshot.Uploaded)
	report.Total = countAssets(snapshot.Committed)
	span.SetAttributes(
		attribute.Int("survey.assets_uploaded", report.Uploaded),
		attribute.Int("survey.assets_failed", len(report.Failed)),
	)

	if err := m.persist(ctx, sink, m.submission(snapshot)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist submission")
		log.Printf("survey finalize: persist failed participant=%s collection=%s err=%v",
			snapshot.ParticipantID, m.env.Definition.Collection, err)
		return report, apperrors.Wrap(apperrors.CodePersistenceFailed, "persist submission", err)
	}
	if err := m.execute(Command{Type: CommandTypeRecordPersisted}); err != nil {
		return report, err
	}

	report.Persisted = true
	m.report = &report
	return cloneReport(report), nil
}

func (m *Machine) upload(ctx context.Context, assets storage.AssetStore, asset PendingAsset) (string, error) {
	ctx, span := m.tracer.Start(ctx, "survey.asset_upload", trace.WithAttributes(
		attribute.String("survey.asset_key", asset.Key),
		attribute.Int("survey.item_index", asset.ItemIndex),
		attribute.Int("survey.asset_bytes", len(asset.Data)),
	))
	defer span.End()

	if assets == nil {
		err := errors.New("no asset store configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload asset")
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, m.uploadTimeout)
	defer cancel()

	ref, err := assets.PutAsset(ctx, asset.Key, asset.Data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload asset")
		return "", err
	}
	return ref, nil
}

func (m *Machine) persist(ctx context.Context, sink storage.SubmissionSink, sub storage.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, m.persistTimeout)
	defer cancel()
	return sink.UpsertSubmission(ctx, sub)
}

func (m *Machine) submission(state State) storage.Submission {
	def := m.env.Definition
	var fields []string
	for _, f := range def.Fields {
		if f.Kind == questionnaire.KindChoice || f.Kind == questionnaire.KindText {
			fields = append(fields, f.Name)
		}
	}
	return storage.Submission{
		Collection:    def.Collection,
		Mode:          def.Mode,
		ParticipantID: state.ParticipantID,
		Consent:       state.Consent,
		Timestamp:     m.now().UTC(),
		Fields:        fields,
		Responses:     state.Committed,
	}
}

func countAssets(records []questionnaire.AnswerRecord) int {
	n := 0
	for _, r := range records {
		if r.AssetKey != "" {
			n++
		}
	}
	return n
}

func cloneReport(r Report) Report {
	r.Failed = append([]AssetFailure(nil), r.Failed...)
	return r
}
