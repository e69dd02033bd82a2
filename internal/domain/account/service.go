package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/healthline/healthline/internal/domain/identity"
	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/crud"
	"github.com/healthline/healthline/internal/platform/db"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPatientAccess    = errors.New("no patient access configured")
	ErrUnsupportedRole    = errors.New("unsupported role")
)

const generatedPasswordLen = 8

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Repos struct {
	Users    UserRepository
	Access   AccessRepository
	Patients identity.PatientRepository
	Doctors  identity.DoctorRepository
	Carers   identity.CarerRepository
}

type Service struct {
	repos  Repos
	users  *crud.Service[User, UserPatch]
	grants *crud.Service[Access, AccessPatch]
	tx     db.Transactor
	tokens *auth.Tokens
	cost   int
}

// NewService wires the account operations. tokens may be nil, in which case
// Login returns no token.
func NewService(repos Repos, tx db.Transactor, tokens *auth.Tokens, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repos:  repos,
		users:  crud.NewService[User, UserPatch]("user", repos.Users),
		grants: crud.NewService[Access, AccessPatch]("user patient access", repos.Access),
		tx:     tx,
		tokens: tokens,
		cost:   bcryptCost,
	}
}

func (s *Service) Users() *crud.Service[User, UserPatch] { return s.users }

func (s *Service) Grants() *crud.Service[Access, AccessPatch] { return s.grants }

// -- Accounts --

type NewUser struct {
	Username  string
	Password  string
	Role      string
	PatientID *int64
	DoctorID  *int64
	CarerID   *int64
}

// CreatedUser carries the plaintext password exactly once, at creation.
type CreatedUser struct {
	User     *User
	Password string
	Access   *Access
}

// CreateUser stores a new account. An empty password is replaced by a
// generated one. When PatientID is set the matching access grant is written
// in the same transaction.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*CreatedUser, error) {
	password, hash, err := s.preparePassword(in.Password)
	if err != nil {
		return nil, err
	}

	var out *CreatedUser
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var txErr error
		out, txErr = s.createUser(ctx, in, hash)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	out.Password = password
	return out, nil
}

func (s *Service) createUser(ctx context.Context, in NewUser, hash string) (*CreatedUser, error) {
	u := &User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
		PatientID:    in.PatientID,
		DoctorID:     in.DoctorID,
		CarerID:      in.CarerID,
	}
	if _, err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	out := &CreatedUser{User: u}
	if in.PatientID != nil {
		grant := &Access{UserID: u.ID, PatientID: *in.PatientID}
		if _, err := s.grants.Create(ctx, grant); err != nil {
			return nil, err
		}
		out.Access = grant
	}
	return out, nil
}

// UpdateUser applies patch; a non-empty password replaces the stored hash.
func (s *Service) UpdateUser(ctx context.Context, id int64, patch UserPatch, password string) (*User, error) {
	if password != "" {
		hash, err := s.hash(password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}
	return s.users.Update(ctx, id, patch)
}

// GrantsForUser lists the access grants held by userID.
func (s *Service) GrantsForUser(ctx context.Context, userID int64) ([]*Access, error) {
	rows, err := s.repos.Access.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user patient access: %w", err)
	}
	return rows, nil
}

// -- Patient provisioning --

type AccountOptions struct {
	Skip     bool
	Username string
	Password string
}

type PatientAccount struct {
	Patient  *identity.Patient
	User     *User
	Password string
	Access   *Access
}

// CreatePatientWithAccount writes the patient, a patient-role account linked
// to it and the access grant as one unit. With opts.Skip only the patient is
// written.
func (s *Service) CreatePatientWithAccount(ctx context.Context, p *identity.Patient, opts AccountOptions) (*PatientAccount, error) {
	patients := crud.NewService[identity.Patient, identity.PatientPatch]("patient", s.repos.Patients)
	if opts.Skip {
		created, err := patients.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		return &PatientAccount{Patient: created}, nil
	}

	password, hash, err := s.preparePassword(opts.Password)
	if err != nil {
		return nil, err
	}

	out := &PatientAccount{Password: password}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		created, err := patients.Create(ctx, p)
		if err != nil {
			return err
		}
		out.Patient = created

		username, err := s.availableUsername(ctx, opts.Username, created)
		if err != nil {
			return err
		}
		patientID := created.ID
		cu, err := s.createUser(ctx, NewUser{Username: username, Role: auth.RolePatient, PatientID: &patientID}, hash)
		if err != nil {
			return err
		}
		out.User = cu.User
		out.Access = cu.Access
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// availableUsername prefers the requested name, then the dotted full name,
// then patient_<id>.
func (s *Service) availableUsername(ctx context.Context, requested string, p *identity.Patient) (string, error) {
	name := strings.TrimSpace(requested)
	if name == "" {
		name = UsernameFromFullName(p.FullName)
	}
	if name != "" {
		taken, err := s.usernameTaken(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	return fmt.Sprintf("patient_%d", p.ID), nil
}

func (s *Service) usernameTaken(ctx context.Context, name string) (bool, error) {
	_, err := s.repos.Users.GetByUsername(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, crud.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("look up username: %w", err)
	}
}

// UsernameFromFullName lowercases name and joins its words with dots.
func UsernameFromFullName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), ".")
}

// -- Login and identity --

type LoginUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type PatientRef struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

type LoginResult struct {
	Role     string       `json:"role"`
	User     LoginUser    `json:"user"`
	Patients []PatientRef `json:"patients"`
	Token    string       `json:"token,omitempty"`
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.repos.Users.GetByUsername(ctx, username)
	if errors.Is(err, crud.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	role := strings.ToLower(u.Role)
	var patients []PatientRef
	switch role {
	case auth.RolePatient, auth.RoleCarer:
		patients, err = s.grantedPatients(ctx, u, role)
	case auth.RoleDoctor, auth.RoleAdmin:
		patients, err = s.allPatients(ctx)
	default:
		return nil, ErrUnsupportedRole
	}
	if err != nil {
		return nil, err
	}

	res := &LoginResult{
		Role:     role,
		User:     LoginUser{ID: u.ID, Username: u.Username, FullName: s.displayName(ctx, u, role)},
		Patients: patients,
	}
	if s.tokens != nil {
		token, err := s.tokens.Issue(u.Username, role)
		if err != nil {
			return nil, err
		}
		res.Token = token
	}
	return res, nil
}

func (s *Service) grantedPatients(ctx context.Context, u *User, role string) ([]PatientRef, error) {
	grants, err := s.repos.Access.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, g := range grants {
		if !seen[g.PatientID] {
			seen[g.PatientID] = true
			ids = append(ids, g.PatientID)
		}
	}
	if len(ids) == 0 && role == auth.RolePatient && u.PatientID != nil {
		ids = []int64{*u.PatientID}
	}
	if len(ids) == 0 {
		return nil, ErrNoPatientAccess
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]PatientRef, 0, len(ids))
	for _, id := range ids {
		p, err := s.repos.Patients.Get(ctx, id)
		if errors.Is(err, crud.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get patient %d: %w", id, err)
		}
		out = append(out, PatientRef{ID: p.ID, FullName: p.FullName})
	}
	return out, nil
}

func (s *Service) allPatients(ctx context.Context) ([]PatientRef, error) {
	rows, err := s.repos.Patients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	out := make([]PatientRef, 0, len(rows))
	for _, p := range rows {
		out = append(out, PatientRef{ID: p.ID, FullName: p.FullName})
	}
	return out, nil
}

// ResolveCaller looks up the account behind username and returns the
// identity tools should act as. Unknown or empty names resolve to guest.
func (s *Service) ResolveCaller(ctx context.Context, username string) (auth.Caller, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return auth.GuestCaller(), nil
	}
	u, err := s.repos.Users.GetByUsername(ctx, username)
	if errors.Is(err, crud.ErrNotFound) {
		return auth.GuestCaller(), nil
	}
	if err != nil {
		return auth.GuestCaller(), fmt.Errorf("resolve caller: %w", err)
	}
	role := strings.ToLower(u.Role)
	if role == "" {
		role = auth.RoleGuest
	}
	return auth.NewCaller(u.Username, s.displayName(ctx, u, role), role), nil
}

// displayName prefers the full name of the linked patient, doctor or carer
// record and falls back to the username. Lookup failures are not fatal.
func (s *Service) displayName(ctx context.Context, u *User, role string) string {
	switch {
	case role == auth.RolePatient && u.PatientID != nil:
		if p, err := s.repos.Patients.Get(ctx, *u.PatientID); err == nil {
			return p.FullName
		}
	case role == auth.RoleDoctor && u.DoctorID != nil && s.repos.Doctors != nil:
		if d, err := s.repos.Doctors.Get(ctx, *u.DoctorID); err == nil {
			return d.FullName
		}
	case role == auth.RoleCarer && u.CarerID != nil && s.repos.Carers != nil:
		if c, err := s.repos.Carers.Get(ctx, *u.CarerID); err == nil {
			return c.FullName
		}
	}
	return u.Username
}

// -- Passwords --

func (s *Service) preparePassword(password string) (plain, hash string, err error) {
	plain = password
	if plain == "" {
		if plain, err = GeneratePassword(generatedPasswordLen); err != nil {
			return "", "", err
		}
	}
	hash, err = s.hash(plain)
	if err != nil {
		return "", "", err
	}
	return plain, hash, nil
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// GeneratePassword returns n random ASCII letters and digits.
func GeneratePassword(n int) (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b[i] = passwordAlphabet[idx.Int64()]
	}
	return string(b), nil
}
