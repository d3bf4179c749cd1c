package models

// Speciality is a category a tailor accepts requests for, with its base price
type Speciality struct {
	Category Category `json:"category"`
	Price    Money    `json:"price"`
}

// Tailor is a service provider listed in the catalog
type Tailor struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Address      string       `json:"address"`
	ImgURL       string       `json:"imgUrl"`
	Money        Money        `json:"money"`
	Rating       float64      `json:"rating"`
	Specialities []Speciality `json:"specialities"`
	PasswordHash string       `json:"-"`
}

// SpecialityFor returns the tailor's offer for c, if any.
func (t Tailor) SpecialityFor(c Category) (Speciality, bool) {
	for _, s := range t.Specialities {
		if s.Category == c {
			return s, true
		}
	}
	return Speciality{}, false
}

// User is a client of the marketplace
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	Address      string `json:"address"`
	Money        Money  `json:"money"`
	Points       int64  `json:"points"`
	PasswordHash string `json:"-"`
}

// ProfileUpdate is the body of POST /users/update
type ProfileUpdate struct {
	ID          int64  `json:"ID"`
	Name        string `json:"Name"`
	PhoneNumber string `json:"PhoneNumber"`
	Address     string `json:"Address"`
}

// TopUpRequest is the body of POST /users/topup/{id}
type TopUpRequest struct {
	Amount Money `json:"amount"`
}
