package enums

import "testing"

func TestRoleRankOrdering(t *testing.T) {
	ordered := []Role{
		RoleOwner,
		RoleCompanyAdmin,
		RoleBrandAdmin,
		RoleShopManager,
		RoleAdmin,
		RoleManager,
		RoleUser,
		RoleViewer,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Fatalf("expected %s to outrank %s", ordered[i-1], ordered[i])
		}
	}
	if RoleOwner.Rank() != 1 {
		t.Fatalf("expected owner rank 1, got %d", RoleOwner.Rank())
	}
	if RoleViewer.Rank() != 8 {
		t.Fatalf("expected viewer rank 8, got %d", RoleViewer.Rank())
	}
}

func TestRoleSatisfies(t *testing.T) {
	for _, actual := range validRoles {
		for _, required := range validRoles {
			want := actual.Rank() <= required.Rank()
			if got := actual.Satisfies(required); got != want {
				t.Fatalf("Satisfies(%s, %s) = %v, want %v", actual, required, got, want)
			}
		}
	}

	if !RoleOwner.Satisfies(RoleViewer) {
		t.Fatal("owner must satisfy a viewer requirement")
	}
	if RoleViewer.Satisfies(RoleOwner) {
		t.Fatal("viewer must not satisfy an owner requirement")
	}
	if RoleViewer.Satisfies("") {
		t.Fatal("unknown required role must never be satisfied")
	}
	if Role("superuser").Satisfies(RoleViewer) {
		t.Fatal("unknown actual role must never satisfy anything")
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("brand_admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != RoleBrandAdmin {
		t.Fatalf("expected brand_admin, got %s", role)
	}

	if _, err := ParseRole("root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestScopeDepth(t *testing.T) {
	if ScopeCompany.Depth() >= ScopeBrand.Depth() || ScopeBrand.Depth() >= ScopeShop.Depth() {
		t.Fatal("scope depths must increase from company to shop")
	}
	if Scope("region").IsValid() {
		t.Fatal("unexpected valid scope")
	}
}
