package model

const MaxAddresses = 3

type Profile struct {
	ID        string   `json:"_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phno"`
	Addresses []string `json:"addresses,omitempty"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phno" validate:"required,e164|numeric"`
}

// ProfilePatch carries only the fields being changed.
type ProfilePatch struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email     *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string  `json:"phno,omitempty" validate:"omitempty,e164|numeric"`
	Addresses []string `json:"addresses,omitempty" validate:"omitempty,max=3,dive,required"`
}

// Apply merges the patch into p and reports whether the email changed.
func (pp ProfilePatch) Apply(p Profile) (Profile, bool) {
	emailChanged := false
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Email != nil && *pp.Email != p.Email {
		p.Email = *pp.Email
		emailChanged = true
	}
	if pp.Phone != nil {
		p.Phone = *pp.Phone
	}
	if pp.Addresses != nil {
		p.Addresses = append([]string(nil), pp.Addresses...)
	}
	return p, emailChanged
}

type AuthResponse struct {
	Result Profile     `json:"result"`
	Cart   CartPayload `json:"cart"`
	Token  string      `json:"token"`
}

type UpdateUserResponse struct {
	Result Profile `json:"result"`
	Token  *string `json:"token"`
}
