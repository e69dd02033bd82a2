package account

// User is a login account. PasswordHash never leaves the process.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	PatientID    *int64 `json:"patient_id"`
	DoctorID     *int64 `json:"doctor_id"`
	CarerID      *int64 `json:"carer_id"`
}

type UserPatch struct {
	Username     *string
	PasswordHash *string
	Role         *string
	PatientID    *int64
	DoctorID     *int64
	CarerID      *int64
}

func (u *User) Apply(p UserPatch) error {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	u.PatientID = setRef(u.PatientID, p.PatientID)
	u.DoctorID = setRef(u.DoctorID, p.DoctorID)
	u.CarerID = setRef(u.CarerID, p.CarerID)
	return nil
}

func setRef(cur, next *int64) *int64 {
	if next == nil {
		return cur
	}
	v := *next
	return &v
}

// Access grants a user visibility of one patient.
type Access struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"user_id"`
	PatientID int64 `json:"patient_id"`
}

type AccessPatch struct {
	UserID    *int64
	PatientID *int64
}

func (a *Access) Apply(p AccessPatch) error {
	if p.UserID != nil {
		a.UserID = *p.UserID
	}
	if p.PatientID != nil {
		a.PatientID = *p.PatientID
	}
	return nil
}
