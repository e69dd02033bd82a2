package action

import (
	"context"

	"github.com/healthline/healthline/internal/domain/account"
	"github.com/healthline/healthline/internal/platform/auth"
)

var (
	userRequired = []string{"username", "role"}
	userFields   = []string{"username", "password", "role", "patient_id", "doctor_id", "carer_id"}
	grantFields  = []string{"user_id", "patient_id"}
)

// CreatedAccount is the create_user reply; Password is the plaintext.
type CreatedAccount struct {
	*account.User
	Password string          `json:"password"`
	Access   *account.Access `json:"access,omitempty"`
}

type userActions struct {
	accounts *account.Service
}

func readUserPatch(r *reader) (account.UserPatch, string) {
	patch := account.UserPatch{
		Username: r.text("username"),
		Role:     r.enum("role", auth.Roles),
	}
	var password string
	if pw := r.text("password"); pw != nil {
		password = *pw
	}
	patch.PatientID = r.id("patient_id")
	patch.DoctorID = r.id("doctor_id")
	patch.CarerID = r.id("carer_id")
	return patch, password
}

// NewUserDispatcher serves handle_user_action: accounts and patient access
// grants. Account management is admin only; grants may also be managed by
// doctors.
func NewUserDispatcher(accounts *account.Service) *Dispatcher {
	a := &userActions{accounts: accounts}
	d := newDispatcher("handle_user_action",
		"Manage login accounts and the patient access granted to them.")
	d.handle("create_user", a.create, auth.RoleAdmin)
	d.handle("read_user", readByID(accounts.Users(), "user_id"), auth.RoleAdmin)
	d.handle("update_user", a.update, auth.RoleAdmin)
	d.handle("delete_user", deleteByID(accounts.Users(), "user_id"), auth.RoleAdmin)
	d.handle("list_users", listAll(accounts.Users()), auth.RoleAdmin)
	d.handle("create_user_patient_access", a.grant, auth.RoleAdmin, auth.RoleDoctor)
	d.handle("delete_user_patient_access", deleteByID(accounts.Grants(), "upa_id"), auth.RoleAdmin, auth.RoleDoctor)
	d.handle("list_user_patient_access", a.listGrants, auth.RoleAdmin, auth.RoleDoctor)
	return d
}

func (a *userActions) create(ctx context.Context, p payload) (any, error) {
	if err := p.require(userRequired...); err != nil {
		return nil, err
	}
	if err := p.only(userFields...); err != nil {
		return nil, err
	}
	r := newReader(p)
	patch, password := readUserPatch(r)
	if r.err != nil {
		return nil, r.err
	}
	cu, err := a.accounts.CreateUser(ctx, account.NewUser{
		Username:  *patch.Username,
		Password:  password,
		Role:      *patch.Role,
		PatientID: patch.PatientID,
		DoctorID:  patch.DoctorID,
		CarerID:   patch.CarerID,
	})
	if err != nil {
		return nil, err
	}
	return &CreatedAccount{User: cu.User, Password: cu.Password, Access: cu.Access}, nil
}

func (a *userActions) update(ctx context.Context, p payload) (any, error) {
	id, err := requireID(p, "user_id")
	if err != nil {
		return nil, err
	}
	if !p.anyPresent(userFields...) {
		return nil, missingFields(msgProvideUpdate, userRequired...)
	}
	if err := p.only(append([]string{"user_id"}, userFields...)...); err != nil {
		return nil, err
	}
	r := newReader(p)
	patch, password := readUserPatch(r)
	if r.err != nil {
		return nil, r.err
	}
	return a.accounts.UpdateUser(ctx, id, patch, password)
}

func (a *userActions) grant(ctx context.Context, p payload) (any, error) {
	if err := p.require(grantFields...); err != nil {
		return nil, err
	}
	if err := p.only(grantFields...); err != nil {
		return nil, err
	}
	r := newReader(p)
	rec := &account.Access{}
	if uid := r.id("user_id"); uid != nil {
		rec.UserID = *uid
	}
	if pid := r.id("patient_id"); pid != nil {
		rec.PatientID = *pid
	}
	if r.err != nil {
		return nil, r.err
	}
	return a.accounts.Grants().Create(ctx, rec)
}

// listGrants lists every grant, or those of user_id when given.
func (a *userActions) listGrants(ctx context.Context, p payload) (any, error) {
	if err := p.only("user_id"); err != nil {
		return nil, err
	}
	if p.absent("user_id") {
		return listAll(a.accounts.Grants())(ctx, p)
	}
	id, err := requireID(p, "user_id")
	if err != nil {
		return nil, err
	}
	rows, err := a.accounts.GrantsForUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*account.Access{}
	}
	return rows, nil
}
