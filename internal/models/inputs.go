package models

import (
	"fmt"

	"github.com/desertthunder/amsctl/internal/shared"
)

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
	DOB       string `json:"dob" validate:"required,datetime=2006-01-02"`
	Address   string `json:"address" validate:"required"`
	Gender    Gender `json:"gender" validate:"required,oneof=M F O"`
}

func (i RegisterInput) Validate() error { return Validate(i) }

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (i LoginInput) Validate() error { return Validate(i) }

// UserUpdate is a partial user update. Nil fields are left unchanged.
type UserUpdate struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitnil,min=1"`
	LastName  *string `json:"last_name,omitempty" validate:"omitnil,min=1"`
	Email     *string `json:"email,omitempty" validate:"omitnil,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitnil,min=1"`
	Password  *string `json:"password,omitempty" validate:"omitnil,min=6"`
	DOB       *string `json:"dob,omitempty" validate:"omitnil,datetime=2006-01-02"`
	Address   *string `json:"address,omitempty" validate:"omitnil,min=1"`
	Gender    *Gender `json:"gender,omitempty" validate:"omitnil,oneof=M F O"`
}

// IsEmpty reports whether no field is set.
func (u UserUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Phone == nil &&
		u.Password == nil && u.DOB == nil && u.Address == nil && u.Gender == nil
}

func (u UserUpdate) Validate() error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", shared.ErrMissingArgument)
	}
	return Validate(u)
}

// ArtistInput is the body of an artist creation request.
type ArtistInput struct {
	Name               string `json:"name" validate:"required"`
	DOB                string `json:"dob" validate:"required,datetime=2006-01-02"`
	Gender             Gender `json:"gender" validate:"required,oneof=M F O"`
	Address            string `json:"address" validate:"required"`
	FirstReleaseYear   int    `json:"first_release_year" validate:"year"`
	NoOfAlbumsReleased int    `json:"no_of_albums_released" validate:"gte=0"`
}

func (i ArtistInput) Validate() error { return Validate(i) }

// ArtistUpdate is a partial artist update. Nil fields are left unchanged.
type ArtistUpdate struct {
	Name               *string `json:"name,omitempty" validate:"omitnil,min=1"`
	DOB                *string `json:"dob,omitempty" validate:"omitnil,datetime=2006-01-02"`
	Gender             *Gender `json:"gender,omitempty" validate:"omitnil,oneof=M F O"`
	Address            *string `json:"address,omitempty" validate:"omitnil,min=1"`
	FirstReleaseYear   *int    `json:"first_release_year,omitempty" validate:"omitnil,year"`
	NoOfAlbumsReleased *int    `json:"no_of_albums_released,omitempty" validate:"omitnil,gte=0"`
}

// IsEmpty reports whether no field is set.
func (u ArtistUpdate) IsEmpty() bool {
	return u.Name == nil && u.DOB == nil && u.Gender == nil && u.Address == nil &&
		u.FirstReleaseYear == nil && u.NoOfAlbumsReleased == nil
}

func (u ArtistUpdate) Validate() error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", shared.ErrMissingArgument)
	}
	return Validate(u)
}

// MusicInput is the body of a track creation or update request.
type MusicInput struct {
	Title     string `json:"title" validate:"required"`
	AlbumName string `json:"album_name" validate:"required"`
	Genre     Genre  `json:"genre" validate:"required,oneof=rnb country classic rock jazz"`
}

func (i MusicInput) Validate() error { return Validate(i) }
