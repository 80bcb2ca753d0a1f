package outbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SnowDream39/vocamap-backend/internal/events"
)

func TestWireFormatRoundTrip(t *testing.T) {
	frame := encodeWireFormat(258, []byte(`{"activity_id":1}`))
	require.Equal(t, []byte{0, 0, 0, 1, 2}, frame[:5])

	id, payload, err := DecodeWireFormat(frame)
	require.NoError(t, err)
	require.Equal(t, 258, id)
	require.JSONEq(t, `{"activity_id":1}`, string(payload))

	_, _, err = DecodeWireFormat([]byte(`{}`))
	require.Error(t, err)
}

func TestCatalogRoutesEveryEventType(t *testing.T) {
	cases := map[string]string{
		events.ActivityCreatedType: ActivityTopic,
		events.ActivityUpdatedType: ActivityTopic,
		events.ActivityDeletedType: ActivityTopic,
		events.ActivityJoinedType:  ActivityTopic,
		events.ActivityLeftType:    ActivityTopic,
		events.TagCreatedType:      TagTopic,
		events.TagDeletedType:      TagTopic,
	}
	for eventType, topic := range cases {
		route, ok := Lookup(eventType)
		require.True(t, ok, eventType)
		assert.Equal(t, topic, route.Topic, eventType)
		assert.True(t, json.Valid([]byte(route.Schema)), eventType)
	}

	_, ok := Lookup("activity.unknown")
	require.False(t, ok)
	require.ElementsMatch(t, []string{ActivityTopic, TagTopic}, Topics())
}

func TestSchemaRegistryRegistersMissingSubject(t *testing.T) {
	var registered string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/tag_events-value/versions/latest":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/subjects/tag_events-value/versions":
			body, _ := io.ReadAll(r.Body)
			registered = string(body)
			_, _ = w.Write([]byte(`{"id":12}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")
	id, err := client.EnsureSchema(context.Background(), "tag_events-value", tagChangedSchema)
	require.NoError(t, err)
	require.Equal(t, 12, id)
	require.Contains(t, registered, `"schemaType":"JSON"`)
}

func TestSchemaRegistryReusesLatestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":5,"version":3}`))
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "activity_events-value", activityChangedSchema)
	require.NoError(t, err)
	require.Equal(t, 5, id)
}

func TestSchemaRegistrySurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "activity_events-value", activityChangedSchema)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSubjectNotFound)
}

func TestRetryPolicyBackoff(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Minute}.withDefaults()
	require.Equal(t, 5, policy.MaxRetries)

	cases := map[int]time.Duration{
		0:  time.Minute,
		1:  time.Minute,
		2:  2 * time.Minute,
		4:  8 * time.Minute,
		7:  time.Hour,
		64: time.Hour,
	}
	for attempt, want := range cases {
		assert.Equal(t, want, policy.Backoff(attempt), "attempt %d", attempt)
	}
}
