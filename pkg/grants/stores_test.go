package grants_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/arcliffe/openidcore/pkg/clock"
	"github.com/arcliffe/openidcore/pkg/grants"
	"github.com/arcliffe/openidcore/pkg/grants/memory"
	"github.com/arcliffe/openidcore/pkg/handle"
)

func newTestStores(t *testing.T) (*grants.Stores, *memory.Adapter) {
	t.Helper()
	adapter := memory.NewAdapter(clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	stores := grants.NewStores(adapter, grants.NewJSONSerializer(), handle.NewGenerator(0), logr.Discard())
	return stores, adapter
}

func TestAuthorizationCodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	stores, adapter := newTestStores(t)

	code := grants.AuthorizationCode{
		ClientID:            "client-1",
		SubjectID:           "subject-1",
		SessionID:           "session-1",
		CreationTime:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Lifetime:            300,
		IsOpenID:            true,
		RequestedScopes:     []string{"openid", "profile"},
		RedirectURI:         "https://client.example/cb",
		Nonce:               "nonce-1",
		CodeChallenge:       "challenge",
		CodeChallengeMethod: "S256",
	}

	codeHandle, err := stores.AuthorizationCodes.Store(ctx, code)
	if err != nil {
		t.Fatalf("failed to store code: %v", err)
	}
	if codeHandle == "" {
		t.Fatal("expected non-empty handle")
	}

	got, err := stores.AuthorizationCodes.Get(ctx, codeHandle)
	if err != nil {
		t.Fatalf("failed to get code: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored code, got nil")
	}
	if got.Nonce != "nonce-1" || got.RedirectURI != "https://client.example/cb" {
		t.Fatalf("payload mismatch: %+v", got)
	}

	// The raw handle must not appear as a persisted key.
	raw, err := adapter.Get(ctx, codeHandle)
	if err != nil {
		t.Fatalf("failed to probe store: %v", err)
	}
	if raw != nil {
		t.Fatal("handle was persisted verbatim")
	}

	if err := stores.AuthorizationCodes.Remove(ctx, codeHandle); err != nil {
		t.Fatalf("failed to remove code: %v", err)
	}
	got, err = stores.AuthorizationCodes.Get(ctx, codeHandle)
	if err != nil {
		t.Fatalf("failed to get code after remove: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil after remove")
	}
}

func TestHandleDoesNotAliasAcrossTypes(t *testing.T) {
	ctx := context.Background()
	stores, _ := newTestStores(t)

	token := grants.RefreshToken{
		ClientID:         "client-1",
		SubjectID:        "subject-1",
		CreationTime:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Lifetime:         3600,
		AuthorizedScopes: []string{"openid"},
	}

	tokenHandle, err := stores.RefreshTokens.Store(ctx, token)
	if err != nil {
		t.Fatalf("failed to store token: %v", err)
	}

	// The same handle resolved through another typed facade must miss.
	code, err := stores.AuthorizationCodes.Get(ctx, tokenHandle)
	if err != nil {
		t.Fatalf("failed to get code: %v", err)
	}
	if code != nil {
		t.Fatal("refresh token handle resolved as authorization code")
	}
}

func TestDeviceFlowCrossReference(t *testing.T) {
	ctx := context.Background()
	stores, _ := newTestStores(t)

	auth := grants.DeviceAuthorization{
		ClientID:        "client-1",
		CreationTime:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Lifetime:        600,
		RequestedScopes: []string{"openid"},
	}

	deviceCode, err := stores.DeviceFlow.Store(ctx, "USER-CODE", auth)
	if err != nil {
		t.Fatalf("failed to store authorization: %v", err)
	}

	byUser, err := stores.DeviceFlow.FindByUserCode(ctx, "USER-CODE")
	if err != nil {
		t.Fatalf("failed to find by user code: %v", err)
	}
	if byUser == nil {
		t.Fatal("expected user-code record")
	}
	if byUser.DeviceCode != deviceCode {
		t.Fatalf("expected device code cross-reference %s, got %s", deviceCode, byUser.DeviceCode)
	}

	byUser.SubjectID = "subject-1"
	byUser.IsAuthorized = true
	byUser.AuthorizedScopes = []string{"openid"}
	if err := stores.DeviceFlow.UpdateByUserCode(ctx, "USER-CODE", *byUser); err != nil {
		t.Fatalf("failed to update by user code: %v", err)
	}

	byDevice, err := stores.DeviceFlow.FindByDeviceCode(ctx, deviceCode)
	if err != nil {
		t.Fatalf("failed to find by device code: %v", err)
	}
	if byDevice == nil {
		t.Fatal("expected device-code record")
	}
	if !byDevice.IsAuthorized || byDevice.SubjectID != "subject-1" {
		t.Fatalf("approval did not propagate to device record: %+v", byDevice)
	}

	if err := stores.DeviceFlow.RemoveByDeviceCode(ctx, deviceCode); err != nil {
		t.Fatalf("failed to remove device code: %v", err)
	}
	byDevice, err = stores.DeviceFlow.FindByDeviceCode(ctx, deviceCode)
	if err != nil {
		t.Fatalf("failed to find by device code after remove: %v", err)
	}
	if byDevice != nil {
		t.Fatal("expected nil after remove")
	}
}

func TestBackchannelRequestUpdate(t *testing.T) {
	ctx := context.Background()
	stores, _ := newTestStores(t)

	request := grants.BackchannelRequest{
		ClientID:        "client-1",
		SubjectID:       "subject-1",
		CreationTime:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Lifetime:        300,
		RequestedScopes: []string{"openid"},
		BindingMessage:  "pair-42",
	}

	authReqID, err := stores.BackchannelRequests.Store(ctx, request)
	if err != nil {
		t.Fatalf("failed to store request: %v", err)
	}

	request.AuthenticatedUser = true
	if err := stores.BackchannelRequests.Update(ctx, authReqID, request); err != nil {
		t.Fatalf("failed to update request: %v", err)
	}

	got, err := stores.BackchannelRequests.Get(ctx, authReqID)
	if err != nil {
		t.Fatalf("failed to get request: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored request")
	}
	if !got.AuthenticatedUser || got.BindingMessage != "pair-42" {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestCorruptPayloadReturnsNil(t *testing.T) {
	ctx := context.Background()
	stores, adapter := newTestStores(t)

	token := grants.RefreshToken{
		ClientID:     "client-1",
		SubjectID:    "subject-1",
		CreationTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Lifetime:     3600,
	}
	tokenHandle, err := stores.RefreshTokens.Store(ctx, token)
	if err != nil {
		t.Fatalf("failed to store token: %v", err)
	}

	all, err := adapter.GetAll(ctx, grants.Filter{SubjectID: "subject-1"})
	if err != nil {
		t.Fatalf("failed to query store: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 persisted grant, got %d", len(all))
	}
	corrupted := all[0]
	corrupted.Data = "{not json"
	if err := adapter.Store(ctx, corrupted); err != nil {
		t.Fatalf("failed to corrupt grant: %v", err)
	}

	got, err := stores.RefreshTokens.Get(ctx, tokenHandle)
	if err != nil {
		t.Fatalf("failed to get token: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for corrupt payload")
	}
}
