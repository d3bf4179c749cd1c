// Package session holds the signed-in identity of the client application.
package session

import (
	"errors"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

var (
	ErrNotSignedIn = errors.New("not signed in")
	ErrNotClient   = errors.New("signed-in identity is not a client")
)

// Identity is either a Client or a Tailor
type Identity interface {
	Role() models.Role
	identity()
}

// Client is a signed-in marketplace user
type Client struct {
	ID      int64
	Name    string
	Email   string
	Address string
	Phone   string
	Money   models.Money
	Points  int64
}

func (Client) Role() models.Role { return models.RoleUser }
func (Client) identity()         {}

// Tailor is a signed-in service provider
type Tailor struct {
	ID           int64
	Name         string
	Email        string
	Address      string
	ImgURL       string
	Money        models.Money
	Rating       float64
	Specialities []models.Speciality
}

func (Tailor) Role() models.Role { return models.RoleTailor }
func (Tailor) identity()         {}

func clientFrom(u *models.User) Client {
	return Client{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Address: u.Address,
		Phone:   u.PhoneNumber,
		Money:   u.Money,
		Points:  u.Points,
	}
}

func tailorFrom(t *models.Tailor) Tailor {
	specs := make([]models.Speciality, len(t.Specialities))
	copy(specs, t.Specialities)
	return Tailor{
		ID:           t.ID,
		Name:         t.Name,
		Email:        t.Email,
		Address:      t.Address,
		ImgURL:       t.ImgURL,
		Money:        t.Money,
		Rating:       t.Rating,
		Specialities: specs,
	}
}

// identityFrom picks the profile matching role; the other one is ignored
func identityFrom(role models.Role, resp *models.SessionResponse) (Identity, error) {
	switch role {
	case models.RoleUser:
		if resp.User == nil {
			return nil, errors.New("session response carries no user profile")
		}
		return clientFrom(resp.User), nil
	case models.RoleTailor:
		if resp.Tailor == nil {
			return nil, errors.New("session response carries no tailor profile")
		}
		return tailorFrom(resp.Tailor), nil
	}
	return nil, errors.New("unknown role")
}
