package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"faqhub/api/internal/store"
)

// visibilityFixture serves one public and one internal entry and applies the
// same filter the real queries do.
func visibilityFixture(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	entries := []store.FAQ{
		{ID: "faq_public", Question: "How do I reset my password?", Answer: "Use the reset link.", Category: "Account", Visibility: "public"},
		{ID: "faq_internal", Question: "What is the escalation rota?", Answer: "See the oncall page.", Category: "Support", Visibility: "internal"},
	}
	fs := &fakeStore{
		listFAQsFn: func(_ context.Context, filter store.FAQFilter) ([]store.FAQ, error) {
			var visible []store.FAQ
			for _, entry := range entries {
				if entry.Visibility == "internal" && !filter.IncludeInternal {
					continue
				}
				visible = append(visible, entry)
			}
			return visible, nil
		},
		getFAQFn: func(_ context.Context, id string, includeInternal bool) (store.FAQ, error) {
			for _, entry := range entries {
				if entry.ID != id {
					continue
				}
				if entry.Visibility == "internal" && !includeInternal {
					return store.FAQ{}, sql.ErrNoRows
				}
				return entry, nil
			}
			return store.FAQ{}, sql.ErrNoRows
		},
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, DisplayName: "View Er", Role: "viewer"}, nil
		},
	}
	svc := newTestService(fs)
	return NewHTTPServer(svc, "*").Handler(), svc
}

func faqIDsFromResponse(t *testing.T, body []byte) []string {
	t.Helper()
	var response struct {
		FAQs []struct {
			ID string `json:"id"`
		} `json:"faqs"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		t.Fatalf("unmarshal list response: %v", err)
	}
	ids := make([]string, 0, len(response.FAQs))
	for _, item := range response.FAQs {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestAnonymousListingExcludesInternalEntries(t *testing.T) {
	handler, _ := visibilityFixture(t)

	rec := doRequest(handler, http.MethodGet, "/api/faqs", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	ids := faqIDsFromResponse(t, rec.Body.Bytes())
	if len(ids) != 1 || ids[0] != "faq_public" {
		t.Fatalf("expected only the public entry, got %v", ids)
	}
}

func TestAuthenticatedListingIncludesInternalEntries(t *testing.T) {
	handler, svc := visibilityFixture(t)
	token := tokenForUser(t, svc, "usr_viewer", "viewer")

	rec := doRequest(handler, http.MethodGet, "/api/faqs", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	ids := faqIDsFromResponse(t, rec.Body.Bytes())
	if len(ids) != 2 {
		t.Fatalf("expected both entries for an authenticated viewer, got %v", ids)
	}
}

func TestInternalEntryReadsAsMissingForAnonymous(t *testing.T) {
	handler, svc := visibilityFixture(t)

	rec := doRequest(handler, http.MethodGet, "/api/faqs/faq_internal", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("anonymous get internal: got %d, want 404", rec.Code)
	}

	// the response must match a genuinely absent id
	missing := doRequest(handler, http.MethodGet, "/api/faqs/faq_nonexistent", "", "")
	if missing.Code != http.StatusNotFound {
		t.Fatalf("anonymous get missing: got %d, want 404", missing.Code)
	}
	var internalBody, missingBody map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &internalBody); err != nil {
		t.Fatalf("unmarshal internal body: %v", err)
	}
	if err := json.Unmarshal(missing.Body.Bytes(), &missingBody); err != nil {
		t.Fatalf("unmarshal missing body: %v", err)
	}
	if internalBody["code"] != missingBody["code"] || internalBody["error"] != missingBody["error"] {
		t.Fatalf("hidden and absent entries must be indistinguishable: %v vs %v", internalBody, missingBody)
	}

	token := tokenForUser(t, svc, "usr_viewer", "viewer")
	if authed := doRequest(handler, http.MethodGet, "/api/faqs/faq_internal", token, ""); authed.Code != http.StatusOK {
		t.Fatalf("viewer get internal: got %d, want 200", authed.Code)
	}
}
