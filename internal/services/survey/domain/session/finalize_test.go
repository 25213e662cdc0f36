package session

import (
	"context"
	"errors"
	"slices"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
)

func finishRating(t *testing.T, n int) *Machine {
	t.Helper()
	m := startedMachine(t, mustDefinition(t, "geolocalization"), ratingItems(n))
	for i := range n {
		if err := m.SubmitItem(validRating()); err != nil {
			t.Fatalf("item %d: %v", i, err)
		}
	}
	return m
}

func finishUploads(t *testing.T, n int, opts ...Option) *Machine {
	t.Helper()
	m := startedMachine(t, mustDefinition(t, "procurement"), slotItems(t, n), opts...)
	for i := range n {
		if err := m.SubmitItem(validUpload(200 + i)); err != nil {
			t.Fatalf("item %d: %v", i, err)
		}
	}
	return m
}

func TestFinalizeRequiresFinished(t *testing.T) {
	m := startedMachine(t, mustDefinition(t, "geolocalization"), ratingItems(2))
	sink := &fakeSink{}

	if _, err := m.Finalize(context.Background(), sink, nil); !errors.Is(err, ErrPhase) {
		t.Fatalf("error = %v, want ErrPhase", err)
	}
	if len(sink.calls) != 0 {
		t.Fatalf("sink calls = %d, want 0", len(sink.calls))
	}
}

func TestFinalizePersistsOnceWithAllRecords(t *testing.T) {
	m := finishRating(t, 3)
	sink := &fakeSink{}

	report, err := m.Finalize(context.Background(), sink, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !report.Persisted || report.Degraded() {
		t.Fatalf("report = %+v", report)
	}
	if len(sink.calls) != 1 {
		t.Fatalf("sink calls = %d, want 1", len(sink.calls))
	}
	sub := sink.calls[0]
	if sub.Collection != "Image_geolocalization" || sub.ParticipantID != "pid-1" || len(sub.Responses) != 3 {
		t.Fatalf("submission = %s/%s/%d", sub.Collection, sub.ParticipantID, len(sub.Responses))
	}
	if !sub.Timestamp.Equal(fixedNow) {
		t.Fatalf("timestamp = %s, want %s", sub.Timestamp, fixedNow)
	}
	if !slices.Equal(sub.Fields, []string{"rating", "net_rating", "clues", "awareness"}) {
		t.Fatalf("fields = %v", sub.Fields)
	}

	again, err := m.Finalize(context.Background(), sink, nil)
	if err != nil {
		t.Fatalf("second Finalize: %v", err)
	}
	if len(sink.calls) != 1 {
		t.Fatalf("sink calls after second finalize = %d, want 1", len(sink.calls))
	}
	if again.Persisted != report.Persisted || again.Total != report.Total {
		t.Fatalf("second report = %+v, want %+v", again, report)
	}
	if !m.View().Persisted {
		t.Fatal("view does not report persisted")
	}
}

func TestFinalizeUploadsAssetsBeforePersisting(t *testing.T) {
	m := finishUploads(t, 3)
	sink := &fakeSink{}
	assets := &fakeAssets{}

	report, err := m.Finalize(context.Background(), sink, assets)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	wantKeys := []string{"India_images/pid-1_0.png", "India_images/pid-1_1.png", "India_images/pid-1_2.png"}
	if !slices.Equal(assets.puts, wantKeys) {
		t.Fatalf("puts = %v, want %v", assets.puts, wantKeys)
	}
	if assets.bytes[wantKeys[2]] != 202 {
		t.Fatalf("bytes = %v", assets.bytes)
	}
	if report.Uploaded != 3 || report.Total != 3 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
	for i, record := range sink.calls[0].Responses {
		if record.AssetReference != "store://"+wantKeys[i] || record.AssetStatus != questionnaire.AssetUploaded {
			t.Fatalf("response %d asset = %q/%q", i, record.AssetReference, record.AssetStatus)
		}
	}
	if pending := m.State().PendingAssets; len(pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(pending))
	}

	if _, err := m.Finalize(context.Background(), sink, assets); err != nil {
		t.Fatalf("second Finalize: %v", err)
	}
	if len(assets.puts) != 3 || len(sink.calls) != 1 {
		t.Fatalf("second finalize repeated work: puts=%d sink=%d", len(assets.puts), len(sink.calls))
	}
}

func TestFinalizeDegradedCompletion(t *testing.T) {
	m := finishUploads(t, 3)
	sink := &fakeSink{}
	assets := &fakeAssets{fail: map[string]int{"India_images/pid-1_1.png": 422}}

	report, err := m.Finalize(context.Background(), sink, assets)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !report.Persisted || !report.Degraded() {
		t.Fatalf("report = %+v, want persisted and degraded", report)
	}
	if report.Uploaded != 2 || report.Total != 3 {
		t.Fatalf("uploaded %d of %d, want 2 of 3", report.Uploaded, report.Total)
	}
	if len(report.Failed) != 1 || report.Failed[0].Key != "India_images/pid-1_1.png" || report.Failed[0].Status != 422 || report.Failed[0].ItemIndex != 1 {
		t.Fatalf("failed = %+v", report.Failed)
	}
	if apperrors.CodeOf(report.Failed[0].Err) != apperrors.CodeUploadFailed {
		t.Fatalf("failure code = %s", apperrors.CodeOf(report.Failed[0].Err))
	}
	if got := sink.calls[0].Responses[1].AssetStatus; got != questionnaire.AssetFailed {
		t.Fatalf("failed response status = %q, want %q", got, questionnaire.AssetFailed)
	}
	if len(assets.puts) != 3 {
		t.Fatalf("puts = %v, want every asset attempted", assets.puts)
	}
}

func TestFinalizePersistenceFailureIsRetryable(t *testing.T) {
	m := finishUploads(t, 2)
	sink := &fakeSink{err: errors.New("deadline exceeded")}
	assets := &fakeAssets{fail: map[string]int{"India_images/pid-1_1.png": 500}}

	report, err := m.Finalize(context.Background(), sink, assets)
	if apperrors.CodeOf(err) != apperrors.CodePersistenceFailed {
		t.Fatalf("error = %v, want PERSISTENCE_FAILED", err)
	}
	if report.Persisted {
		t.Fatal("report claims persisted")
	}
	if m.State().Persisted {
		t.Fatal("state claims persisted")
	}

	sink.err = nil
	delete(assets.fail, "India_images/pid-1_1.png")
	report, err = m.Finalize(context.Background(), sink, assets)
	if err != nil {
		t.Fatalf("retry Finalize: %v", err)
	}
	want := []string{"India_images/pid-1_0.png", "India_images/pid-1_1.png", "India_images/pid-1_1.png"}
	if !slices.Equal(assets.puts, want) {
		t.Fatalf("puts = %v, want %v", assets.puts, want)
	}
	if len(sink.calls) != 2 {
		t.Fatalf("sink calls = %d, want 2", len(sink.calls))
	}
	if report.Uploaded != 2 || report.Degraded() || !report.Persisted {
		t.Fatalf("report = %+v", report)
	}
}

func TestFinalizeWithoutAssetStoreReportsFailures(t *testing.T) {
	m := finishUploads(t, 1)
	sink := &fakeSink{}

	report, err := m.Finalize(context.Background(), sink, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(report.Failed) != 1 || !report.Persisted {
		t.Fatalf("report = %+v", report)
	}
}

func TestFinalizeRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m := finishUploads(t, 2, WithTracer(provider.Tracer("test")))
	if _, err := m.Finalize(context.Background(), &fakeSink{}, &fakeAssets{}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	slices.Sort(names)
	want := []string{"survey.asset_upload", "survey.asset_upload", "survey.finalize"}
	if !slices.Equal(names, want) {
		t.Fatalf("spans = %v, want %v", names, want)
	}
}
