package db

import (
	"database/sql"
	"fmt"
	"time"
)

type User struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	FullName          *string   `json:"full_name,omitempty"`
	IsActive          bool      `json:"is_active"`
	Country           *string   `json:"country,omitempty"`
	SettlementCountry *string   `json:"settlement_country,omitempty"`
	CountrySelected   bool      `json:"country_selected"`
	ProfilePhoto      *string   `json:"profile_photo,omitempty"`
	StreetAddress     *string   `json:"street_address,omitempty"`
	City              *string   `json:"city,omitempty"`
	PostalCode        *string   `json:"postal_code,omitempty"`
	PhoneNumber       *string   `json:"phone_number,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// UserSummary is the minimal public profile embedded in forum responses.
type UserSummary struct {
	ID           int64   `json:"id"`
	FullName     string  `json:"full_name"`
	ProfilePhoto *string `json:"profile_photo"`
	Country      *string `json:"country"`
}

type CreateUserInput struct {
	Email        string
	FullName     string
	Country      string
	PasswordHash string
}

const userColumns = `id, email, full_name, is_active, country, settlement_country,
	country_selected, profile_photo, street_address, city, postal_code, phone_number, created_at`

func scanUser(s interface{ Scan(...any) error }) (*User, error) {
	u := &User{}
	var fullName, country, settlementCountry, photo, street, city, postal, phone sql.NullString
	err := s.Scan(&u.ID, &u.Email, &fullName, &u.IsActive, &country, &settlementCountry,
		&u.CountrySelected, &photo, &street, &city, &postal, &phone, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if fullName.Valid {
		u.FullName = &fullName.String
	}
	if country.Valid {
		u.Country = &country.String
	}
	if settlementCountry.Valid {
		u.SettlementCountry = &settlementCountry.String
	}
	if photo.Valid {
		u.ProfilePhoto = &photo.String
	}
	if street.Valid {
		u.StreetAddress = &street.String
	}
	if city.Valid {
		u.City = &city.String
	}
	if postal.Valid {
		u.PostalCode = &postal.String
	}
	if phone.Valid {
		u.PhoneNumber = &phone.String
	}
	return u, nil
}

func (db *DB) CreateUser(input CreateUserInput) (*User, error) {
	var fullName, country *string
	if input.FullName != "" {
		fullName = &input.FullName
	}
	if input.Country != "" {
		country = &input.Country
	}
	res, err := db.Exec(`
		INSERT INTO users (email, full_name, country, password_hash)
		VALUES (?, ?, ?, ?)`, input.Email, fullName, country, input.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetUserByID(id)
}

func (db *DB) GetUserByID(id int64) (*User, error) {
	u, err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// GetUserByEmail returns the user and its password hash for login.
func (db *DB) GetUserByEmail(email string) (*User, string, error) {
	var passwordHash string
	err := db.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, email).Scan(&passwordHash)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	u, err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, "", err
	}
	return u, passwordHash, nil
}

// UpdateUserInput carries a partial profile update. Nil fields are left
// untouched. Email is immutable after registration.
type UpdateUserInput struct {
	FullName          *string
	PasswordHash      *string
	IsActive          *bool
	Country           *string
	SettlementCountry *string
	CountrySelected   *bool
	ProfilePhoto      *string
	StreetAddress     *string
	City              *string
	PostalCode        *string
	PhoneNumber       *string
}

func (db *DB) UpdateUser(id int64, input UpdateUserInput) (*User, error) {
	set := ""
	var args []any
	add := func(col string, val any) {
		if set != "" {
			set += ", "
		}
		set += col + " = ?"
		args = append(args, val)
	}
	if input.FullName != nil {
		add("full_name", *input.FullName)
	}
	if input.PasswordHash != nil {
		add("password_hash", *input.PasswordHash)
	}
	if input.IsActive != nil {
		add("is_active", *input.IsActive)
	}
	if input.Country != nil {
		add("country", *input.Country)
	}
	if input.SettlementCountry != nil {
		add("settlement_country", *input.SettlementCountry)
	}
	if input.CountrySelected != nil {
		add("country_selected", *input.CountrySelected)
	}
	if input.ProfilePhoto != nil {
		add("profile_photo", *input.ProfilePhoto)
	}
	if input.StreetAddress != nil {
		add("street_address", *input.StreetAddress)
	}
	if input.City != nil {
		add("city", *input.City)
	}
	if input.PostalCode != nil {
		add("postal_code", *input.PostalCode)
	}
	if input.PhoneNumber != nil {
		add("phone_number", *input.PhoneNumber)
	}
	if set == "" {
		return db.GetUserByID(id)
	}

	res, err := db.Exec(`UPDATE users SET `+set+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return db.GetUserByID(id)
}

// GetUserSummary returns the public profile for embedding in forum responses.
// A missing user yields an "Unknown" placeholder rather than an error, so a
// deleted author never fails the enclosing request.
func (db *DB) GetUserSummary(id int64) *UserSummary {
	var fullName, email sql.NullString
	var photo, country sql.NullString
	err := db.QueryRow(`SELECT full_name, email, profile_photo, country FROM users WHERE id = ?`, id).
		Scan(&fullName, &email, &photo, &country)
	if err != nil {
		return &UserSummary{ID: id, FullName: "Unknown"}
	}
	s := &UserSummary{ID: id, FullName: email.String}
	if fullName.Valid && fullName.String != "" {
		s.FullName = fullName.String
	}
	if photo.Valid {
		s.ProfilePhoto = &photo.String
	}
	if country.Valid {
		s.Country = &country.String
	}
	return s
}
