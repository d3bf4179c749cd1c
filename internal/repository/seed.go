package repository

import (
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

// SeedPassword is the password of every seeded account
const SeedPassword = "password123"

// Seed is the initial content of a store
type Seed struct {
	Users    []models.User
	Tailors  []models.Tailor
	Products []models.Product
	Coupons  map[int64][]models.Coupon
}

var (
	seedHashOnce sync.Once
	seedHash     string
)

func seedPasswordHash() string {
	seedHashOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
		if err != nil {
			panic(err)
		}
		seedHash = string(hash)
	})
	return seedHash
}

func price(v int64) models.Money {
	return decimal.NewFromInt(v)
}

// DefaultSeed returns demo accounts, tailors and products.
func DefaultSeed() Seed {
	hash := seedPasswordHash()

	return Seed{
		Users: []models.User{
			{ID: 1, Name: "Alice Wong", Email: "alice@example.com", PhoneNumber: "0812345678", Address: "12 Silom Rd, Bangkok", Money: price(2000), Points: 250, PasswordHash: hash},
			{ID: 2, Name: "Ben Carter", Email: "ben@example.com", PhoneNumber: "0898765432", Address: "4 Sukhumvit Soi 11, Bangkok", Money: price(50), Points: 0, PasswordHash: hash},
		},
		Tailors: []models.Tailor{
			{
				ID: 1, Name: "Somchai Tailor", Email: "somchai@example.com", Address: "88 Charoen Krung Rd, Bangkok", Rating: 4.8, Money: price(0), PasswordHash: hash,
				Specialities: []models.Speciality{
					{Category: models.CategoryTop, Price: price(100)},
					{Category: models.CategorySuit, Price: price(1200)},
				},
			},
			{
				ID: 2, Name: "Mali Couture", Email: "mali@example.com", Address: "21 Ari Rd, Bangkok", Rating: 4.5, Money: price(0), PasswordHash: hash,
				Specialities: []models.Speciality{
					{Category: models.CategoryDress, Price: price(800)},
					{Category: models.CategoryBottom, Price: price(350)},
				},
			},
			{
				ID: 3, Name: "Canvas & Thread", Email: "canvas@example.com", Address: "5 Nimman Rd, Chiang Mai", Rating: 4.2, Money: price(0), PasswordHash: hash,
				Specialities: []models.Speciality{
					{Category: models.CategoryToteBag, Price: price(250)},
				},
			},
		},
		Products: []models.Product{
			{ID: 1, TailorID: 1, Name: "Linen Shirt", Description: "White linen, regular fit", Price: price(450), Size: "M", IsActive: true},
			{ID: 2, TailorID: 1, Name: "Wool Blazer", Description: "Navy, two buttons", Price: price(2400), Size: "L", IsActive: true},
			{ID: 3, TailorID: 2, Name: "Silk Slip Dress", Description: "Emerald silk", Price: price(1800), Size: "S", IsActive: true},
			{ID: 4, TailorID: 2, Name: "Pleated Trousers", Description: "Charcoal, high waist", Price: price(900), Size: "M", IsActive: true},
			{ID: 5, TailorID: 3, Name: "Canvas Tote", Description: "Natural canvas with pocket", Price: price(300), Size: "One size", IsActive: true},
		},
		Coupons: map[int64][]models.Coupon{
			1: {{Code: "TECH15", DiscountAmount: price(150), Quantity: 1}},
		},
	}
}
