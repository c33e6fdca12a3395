package calendar

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func TestEventFromExam(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	e := models.Exam{ID: "E1", Course: "Matematica", Date: time.Date(2025, 6, 10, 7, 0, 0, 0, time.UTC), Room: "2", Building: "Monte"}
	ev := EventFromExam(e, rome)

	assert.Equal(t, "Matematica", ev.Title)
	assert.Equal(t, "Esame programmato. Aula: 2, Padiglione: Monte", ev.Description)
	assert.Equal(t, 9, ev.Start.Hour())
	assert.Equal(t, 2*time.Hour, ev.End.Sub(ev.Start))
	assert.Equal(t, "Europe/Rome", ev.Start.Location().String())
}

func TestEventFromExam_MissingFields(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, at)

	ev := EventFromExam(models.Exam{ID: "E2"}, time.UTC)
	assert.Equal(t, "Esame", ev.Title)
	assert.Equal(t, "Esame programmato. Aula: ND, Padiglione: ND", ev.Description)
	assert.True(t, ev.Start.Equal(at))
	assert.Empty(t, ev.Location)
}

func TestEventFromLesson_UsesEnd(t *testing.T) {
	start := time.Date(2025, 3, 3, 8, 30, 0, 0, time.UTC)
	l := models.Lesson{ID: "L1", Course: "Fisica", Start: start, End: start.Add(90 * time.Minute), Room: "A1"}

	ev := EventFromLesson(l, time.UTC)
	assert.Equal(t, 90*time.Minute, ev.End.Sub(ev.Start))
	assert.Equal(t, "Lezione programmata. Aula: A1, Padiglione: ND", ev.Description)
	assert.Equal(t, "Aula A1", ev.Location)

	l.End = time.Time{}
	ev = EventFromLesson(l, time.UTC)
	assert.Equal(t, DefaultDuration, ev.End.Sub(ev.Start))
}

func parseICS(t *testing.T, out []byte) *ics.Calendar {
	t.Helper()
	cal, err := ics.ParseCalendar(bytes.NewReader(out))
	require.NoError(t, err)
	return cal
}

func TestRenderICS(t *testing.T) {
	stamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	exam := models.Exam{ID: "E1", Course: "Analisi", Date: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), Room: "2", Building: "Monte"}

	out := RenderICS(stamp, EventFromExam(exam, time.UTC))
	text := string(out)

	assert.True(t, strings.HasPrefix(text, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, text, "DTSTAMP:20250101T000000Z\r\n")
	assert.Contains(t, text, "DTSTART:20250610T090000Z\r\n")
	assert.Contains(t, text, "DTEND:20250610T110000Z\r\n")
	assert.Contains(t, text, "SUMMARY:Analisi\r\n")
	assert.Contains(t, text, "Padiglione: Monte")

	events := parseICS(t, out).Events()
	require.Len(t, events, 1)
	assert.Equal(t, "esame-E1@insubria-survive", events[0].Id())
}

func TestRenderICS_ZonedEventsAreWrittenInUTC(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	date := time.Date(2025, 6, 10, 7, 0, 0, 0, time.UTC)

	for _, loc := range []*time.Location{rome, nil, time.Local} {
		out := RenderICS(time.Now(), EventFromExam(models.Exam{ID: "E1", Date: date}, loc))
		text := string(out)

		assert.NotContains(t, text, "TZID=")
		assert.Contains(t, text, "DTSTART:20250610T070000Z\r\n")

		events := parseICS(t, out).Events()
		require.Len(t, events, 1)
		start, err := events[0].GetStartAt()
		require.NoError(t, err)
		assert.True(t, start.Equal(date))
	}
}

func TestRenderICS_SeveralEvents(t *testing.T) {
	start := time.Date(2025, 3, 3, 8, 30, 0, 0, time.UTC)
	out := RenderICS(start,
		EventFromLesson(models.Lesson{ID: "L1", Course: "Fisica", Start: start}, time.UTC),
		EventFromLesson(models.Lesson{ID: "L2", Course: "Chimica", Start: start.Add(24 * time.Hour)}, time.UTC),
	)

	events := parseICS(t, out).Events()
	require.Len(t, events, 2)
	assert.Equal(t, "lezione-L1@insubria-survive", events[0].Id())
	assert.Equal(t, "lezione-L2@insubria-survive", events[1].Id())
}

func TestRenderICS_Empty(t *testing.T) {
	out := RenderICS(time.Now())
	assert.Empty(t, parseICS(t, out).Events())
}

func stubS3(t *testing.T) {
	t.Helper()
	origLoad, origNew, origPut, origPresign := loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject = origLoad, origNew, origPut, origPresign
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		require.Equal(t, "eu-south-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		require.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
		return &s3.Client{}
	}
	presignGetObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/survive/" + *in.Key}, nil
	}
}

func testConfig() S3Config {
	return S3Config{Region: "eu-south-1", Endpoint: "http://127.0.0.1:9000", AccessKey: "k", SecretKey: "s", Bucket: "survive"}
}

func TestS3Exporter_Export(t *testing.T) {
	stubS3(t)
	var body string
	var key string
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		b, err := io.ReadAll(in.Body)
		require.NoError(t, err)
		body = string(b)
		key = *in.Key
		require.Equal(t, "survive", *in.Bucket)
		return nil
	}

	exp := NewS3Exporter(testConfig(), logging.NewNopLogger())
	ev := EventFromExam(models.Exam{ID: "E1", Course: "Matematica"}, time.UTC)

	link, err := exp.Export(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "calendar/"))
	assert.True(t, strings.HasSuffix(key, ".ics"))
	assert.Equal(t, "http://127.0.0.1:9000/survive/"+key, link)
	assert.Contains(t, body, "SUMMARY:Matematica")
}

func TestS3Exporter_UploadFailure(t *testing.T) {
	stubS3(t)
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		return errors.New("access denied")
	}

	exp := NewS3Exporter(testConfig(), logging.NewNopLogger())
	_, err := exp.Export(context.Background(), EventFromExam(models.Exam{ID: "E1"}, time.UTC))
	require.ErrorContains(t, err, "access denied")
}

func TestS3Exporter_Empty(t *testing.T) {
	exp := NewS3Exporter(testConfig(), logging.NewNopLogger())
	_, err := exp.Export(context.Background())
	require.Error(t, err)
}
