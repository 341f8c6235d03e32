package oidc

import (
	"context"
	"slices"
	"testing"
)

func TestNewDiscoveryDocument(t *testing.T) {
	document := NewDiscoveryDocument("https://issuer.example")

	if document.Issuer != "https://issuer.example" {
		t.Fatalf("unexpected issuer: %q", document.Issuer)
	}
	if !slices.Equal(document.ResponseTypesSupported, SupportedResponseTypes) {
		t.Fatalf("unexpected response types: %v", document.ResponseTypesSupported)
	}
	if !slices.Equal(document.GrantTypesSupported, AllowedGrantTypesForAuthorizeEndpoint) {
		t.Fatalf("unexpected grant types: %v", document.GrantTypesSupported)
	}
	if !slices.Contains(document.CodeChallengeMethodsSupported, CodeChallengeMethodS256) {
		t.Fatalf("expected S256 to be advertised, got %v", document.CodeChallengeMethodsSupported)
	}
	if !document.AuthorizationResponseIssParameterSupported {
		t.Fatal("expected iss response parameter support to be advertised")
	}
}

func TestStaticIssuer(t *testing.T) {
	issuer, err := StaticIssuer("https://issuer.example").CurrentIssuer(context.Background())
	if err != nil {
		t.Fatalf("current issuer failed: %v", err)
	}
	if issuer != "https://issuer.example" {
		t.Fatalf("unexpected issuer: %q", issuer)
	}
}
