package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "anonymous read", role: RoleAnonymous, action: ActionRead, allow: true},
		{name: "anonymous comment", role: RoleAnonymous, action: ActionComment, allow: false},
		{name: "anonymous write", role: RoleAnonymous, action: ActionWrite, allow: false},
		{name: "viewer read", role: RoleViewer, action: ActionRead, allow: true},
		{name: "viewer comment", role: RoleViewer, action: ActionComment, allow: true},
		{name: "viewer write", role: RoleViewer, action: ActionWrite, allow: false},
		{name: "editor write", role: RoleEditor, action: ActionWrite, allow: true},
		{name: "editor admin", role: RoleEditor, action: ActionAdmin, allow: false},
		{name: "admin write", role: RoleAdmin, action: ActionWrite, allow: true},
		{name: "admin admin", role: RoleAdmin, action: ActionAdmin, allow: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestCanReadEntry(t *testing.T) {
	cases := []struct {
		name       string
		role       Role
		visibility Visibility
		allow      bool
	}{
		{name: "anonymous public", role: RoleAnonymous, visibility: VisibilityPublic, allow: true},
		{name: "anonymous internal", role: RoleAnonymous, visibility: VisibilityInternal, allow: false},
		{name: "viewer internal", role: RoleViewer, visibility: VisibilityInternal, allow: true},
		{name: "editor internal", role: RoleEditor, visibility: VisibilityInternal, allow: true},
		{name: "admin internal", role: RoleAdmin, visibility: VisibilityInternal, allow: true},
		{name: "viewer public", role: RoleViewer, visibility: VisibilityPublic, allow: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanReadEntry(tc.role, tc.visibility); got != tc.allow {
				t.Fatalf("CanReadEntry(%q, %q) = %v, want %v", tc.role, tc.visibility, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("admin"); got != RoleAdmin {
		t.Fatalf("Normalize(admin) = %q", got)
	}
	if got := Normalize(""); got != RoleAnonymous {
		t.Fatalf("Normalize(empty) = %q, want anonymous", got)
	}
	if got := Normalize("superuser"); got != RoleViewer {
		t.Fatalf("Normalize(unknown) = %q, want viewer", got)
	}
}

func TestNormalizeVisibility(t *testing.T) {
	if got := NormalizeVisibility(""); got != VisibilityPublic {
		t.Fatalf("NormalizeVisibility(empty) = %q, want public", got)
	}
	if got := NormalizeVisibility("internal"); got != VisibilityInternal {
		t.Fatalf("NormalizeVisibility(internal) = %q", got)
	}
	if got := NormalizeVisibility("secret"); got != VisibilityPublic {
		t.Fatalf("NormalizeVisibility(unknown) = %q, want public", got)
	}
}
