package action

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/healthline/healthline/internal/domain/account"
	"github.com/healthline/healthline/internal/platform/auth"
)

const userTool = "handle_user_action"

func TestUserActions_AdminOnly(t *testing.T) {
	e := newTestEnv()
	for _, role := range []string{auth.RoleGuest, auth.RoleDoctor, auth.RolePatient} {
		for _, action := range []string{"create_user", "read_user", "update_user", "delete_user", "list_users"} {
			res := e.dispatch(t, asRole(role), userTool, action, map[string]any{"user_id": 1})
			expectError(t, res, "role "+role+" is not permitted to "+action)
		}
	}
	res := e.dispatch(t, asRole(auth.RoleCarer), userTool, "list_user_patient_access", nil)
	expectError(t, res, "role carer is not permitted to list_user_patient_access")
}

func TestCreateUser(t *testing.T) {
	e := newTestEnv()
	admin := asRole(auth.RoleAdmin)

	expectMissing(t, e.dispatch(t, admin, userTool, "create_user", map[string]any{"password": "x"}), "username", "role")
	expectMissing(t, e.dispatch(t, admin, userTool, "create_user", map[string]any{"username": "dr", "role": "surgeon"}), "role")

	pid := createPatient(t, e, validPatient())["patient_id"]
	res := e.dispatch(t, admin, userTool, "create_user", map[string]any{
		"username": "sam.carer", "role": "Carer", "patient_id": pid,
	})
	data := dataOf(t, res)
	if data["role"] != auth.RoleCarer || len(data["password"].(string)) != 8 {
		t.Errorf("unexpected user: %v", data)
	}
	if access, ok := data["access"].(map[string]any); !ok || access["patient_id"] != pid {
		t.Errorf("expected grant for patient %v: %v", pid, data["access"])
	}

	raw, _ := json.Marshal(res)
	if strings.Contains(string(raw), "password_hash") || strings.Contains(string(raw), "$2a$") {
		t.Errorf("hash leaked: %s", raw)
	}

	login, err := e.accounts.Login(context.Background(), "sam.carer", data["password"].(string))
	if err != nil {
		t.Fatalf("login with generated password: %v", err)
	}
	if len(login.Patients) != 1 {
		t.Errorf("carer should see the granted patient: %+v", login.Patients)
	}

	expectError(t, e.dispatch(t, admin, userTool, "create_user", map[string]any{"username": "sam.carer", "role": "carer"}), "")
}

func TestUpdateUser_Password(t *testing.T) {
	e := newTestEnv()
	admin := asRole(auth.RoleAdmin)
	data := dataOf(t, e.dispatch(t, admin, userTool, "create_user", map[string]any{
		"username": "house", "role": "doctor", "password": "first-pass",
	}))

	expectMissing(t, e.dispatch(t, admin, userTool, "update_user", map[string]any{"user_id": data["id"]}), userRequired...)

	updated := dataOf(t, e.dispatch(t, admin, userTool, "update_user", map[string]any{
		"user_id": data["id"], "password": "second-pass",
	}))
	if updated["username"] != "house" {
		t.Errorf("unexpected update: %v", updated)
	}
	if _, ok := updated["password"]; ok {
		t.Error("update must not echo a password")
	}

	ctx := context.Background()
	if _, err := e.accounts.Login(ctx, "house", "first-pass"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Errorf("old password should be rejected, got %v", err)
	}
	if _, err := e.accounts.Login(ctx, "house", "second-pass"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestUserPatientAccess(t *testing.T) {
	e := newTestEnv()
	admin := asRole(auth.RoleAdmin)
	doctor := asRole(auth.RoleDoctor)

	first := createPatient(t, e, validPatient())
	p := validPatient()
	p["full_name"] = "John Roe"
	second := createPatient(t, e, p)
	uid := first["user"].(map[string]any)["id"]

	expectMissing(t, e.dispatch(t, doctor, userTool, "create_user_patient_access", map[string]any{"user_id": uid}), "patient_id")

	grant := dataOf(t, e.dispatch(t, doctor, userTool, "create_user_patient_access", map[string]any{
		"user_id": uid, "patient_id": second["patient_id"],
	}))

	res := e.dispatch(t, admin, userTool, "list_user_patient_access", map[string]any{"user_id": uid})
	rows, _ := decode(t, res)["data"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected two grants for user %v, got %v", uid, rows)
	}

	res = e.dispatch(t, admin, userTool, "list_user_patient_access", nil)
	all, _ := decode(t, res)["data"].([]any)
	if len(all) != 3 {
		t.Errorf("expected three grants in total, got %d", len(all))
	}

	del := dataOf(t, e.dispatch(t, doctor, userTool, "delete_user_patient_access", map[string]any{"upa_id": grant["id"]}))
	if del["upa_id"] != grant["id"] {
		t.Errorf("unexpected delete result: %v", del)
	}
	expectError(t, e.dispatch(t, doctor, userTool, "delete_user_patient_access", map[string]any{"upa_id": grant["id"]}),
		"user patient access not found")
}
