package campuspb

import (
	"encoding/json"
	"fmt"

	"github.com/insubria-survive/survive/internal/models"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Credentials is the Login request.
type Credentials struct {
	Username string
	Password string
}

// Tokens is the access/refresh pair returned by Login and RefreshToken.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the Login response.
type LoginResult struct {
	Tokens
	User models.User
}

// PutDocumentRequest seeds or replaces one document of a collection.
type PutDocumentRequest struct {
	Collection string          `json:"collection"`
	Document   models.Document `json:"document"`
}

func str(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func EncodeCredentials(c Credentials) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"username": structpb.NewStringValue(c.Username),
		"password": structpb.NewStringValue(c.Password),
	}}
}

func DecodeCredentials(s *structpb.Struct) Credentials {
	return Credentials{Username: str(s, "username"), Password: str(s, "password")}
}

func EncodeTokens(t Tokens) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"access_token":  structpb.NewStringValue(t.AccessToken),
		"refresh_token": structpb.NewStringValue(t.RefreshToken),
	}}
}

func DecodeTokens(s *structpb.Struct) (Tokens, error) {
	t := Tokens{AccessToken: str(s, "access_token"), RefreshToken: str(s, "refresh_token")}
	if t.AccessToken == "" {
		return Tokens{}, fmt.Errorf("response without access token")
	}
	return t, nil
}

func EncodeLoginResult(r LoginResult) *structpb.Struct {
	s := EncodeTokens(r.Tokens)
	s.Fields["user"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         structpb.NewStringValue(r.User.ID),
		"username":   structpb.NewStringValue(r.User.Username),
		"first_name": structpb.NewStringValue(r.User.FirstName),
		"last_name":  structpb.NewStringValue(r.User.LastName),
	}})
	return s
}

func DecodeLoginResult(s *structpb.Struct) (LoginResult, error) {
	t, err := DecodeTokens(s)
	if err != nil {
		return LoginResult{}, err
	}
	u := s.GetFields()["user"].GetStructValue()
	if u == nil || str(u, "username") == "" {
		return LoginResult{}, fmt.Errorf("response without user")
	}
	return LoginResult{
		Tokens: t,
		User: models.User{
			ID:        str(u, "id"),
			Username:  str(u, "username"),
			FirstName: str(u, "first_name"),
			LastName:  str(u, "last_name"),
		},
	}, nil
}

// EncodeSnapshot carries a snapshot as JSON bytes on the Subscribe stream.
func EncodeSnapshot(s models.Snapshot) (*wrapperspb.BytesValue, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(b), nil
}

func DecodeSnapshot(v *wrapperspb.BytesValue) (models.Snapshot, error) {
	var s models.Snapshot
	if err := json.Unmarshal(v.GetValue(), &s); err != nil {
		return models.Snapshot{}, fmt.Errorf("malformed snapshot: %w", err)
	}
	return s, nil
}

func EncodePutDocument(r PutDocumentRequest) (*wrapperspb.BytesValue, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(b), nil
}

func DecodePutDocument(v *wrapperspb.BytesValue) (PutDocumentRequest, error) {
	var r PutDocumentRequest
	if err := json.Unmarshal(v.GetValue(), &r); err != nil {
		return PutDocumentRequest{}, fmt.Errorf("malformed document: %w", err)
	}
	return r, nil
}
