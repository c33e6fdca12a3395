package campuspb

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/insubria-survive/survive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestLoginResult(t *testing.T) {
	in := LoginResult{
		Tokens: Tokens{AccessToken: "a", RefreshToken: "r"},
		User:   models.User{ID: "u1", Username: "mario", FirstName: "Mario", LastName: "Rossi"},
	}
	out, err := DecodeLoginResult(EncodeLoginResult(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeLoginResult_Incomplete(t *testing.T) {
	_, err := DecodeLoginResult(EncodeTokens(Tokens{AccessToken: "a"}))
	assert.Error(t, err)

	_, err = DecodeLoginResult(&structpb.Struct{})
	assert.Error(t, err)

	_, err = DecodeTokens(nil)
	assert.Error(t, err)
}

func TestCredentials(t *testing.T) {
	c := Credentials{Username: "mario", Password: "pw"}
	assert.Equal(t, c, DecodeCredentials(EncodeCredentials(c)))
	assert.Equal(t, Credentials{}, DecodeCredentials(nil))
}

func TestSnapshot(t *testing.T) {
	s := models.Snapshot{
		Collection: "esame",
		At:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Documents:  []models.Document{{ID: "E1", Data: json.RawMessage(`{"corso":"Matematica"}`)}},
	}
	v, err := EncodeSnapshot(s)
	require.NoError(t, err)

	got, err := DecodeSnapshot(v)
	require.NoError(t, err)
	assert.Equal(t, s.Collection, got.Collection)
	assert.True(t, s.At.Equal(got.At))
	require.Len(t, got.Documents, 1)
	assert.JSONEq(t, `{"corso":"Matematica"}`, string(got.Documents[0].Data))

	_, err = DecodeSnapshot(wrapperspb.Bytes([]byte("{")))
	assert.Error(t, err)
}

func TestPutDocument(t *testing.T) {
	r := PutDocumentRequest{Collection: "padiglione", Document: models.Document{ID: "p1", Data: json.RawMessage(`{"codice":"MON"}`)}}
	v, err := EncodePutDocument(r)
	require.NoError(t, err)

	got, err := DecodePutDocument(v)
	require.NoError(t, err)
	assert.Equal(t, "padiglione", got.Collection)
	assert.Equal(t, "p1", got.Document.ID)
}
