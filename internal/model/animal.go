// Package model defines the data structures used throughout the application.
package model

// Animal is a shelter animal.
//
// Adoption is stored on the animal itself rather than in a separate table:
// AdopterID and AdoptionDate are either both nil (not adopted) or both set.
// An animal therefore has at most one adopter and no adoption history.
type Animal struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Age          int     `json:"age"`
	Kind         string  `json:"kind"` // free-text species tag, e.g. "cat"
	Fixed        bool    `json:"fixed"`
	Vaccinated   bool    `json:"vaccinated"`
	IntakeDate   Date    `json:"intake_date"`
	AdopterID    *string `json:"adopter_id"`
	AdoptionDate *Date   `json:"adoption_date"`
}

// Adopted reports whether the animal has an adopter.
func (a Animal) Adopted() bool {
	return a.AdopterID != nil
}

// AnimalCreate is the request body for adding an animal.
// Required fields are pointers so a missing field can be told apart from a zero value.
type AnimalCreate struct {
	Name       *string `json:"name"`
	Age        *int    `json:"age"`
	Kind       *string `json:"kind"`
	Fixed      bool    `json:"fixed"`
	Vaccinated bool    `json:"vaccinated"`
	IntakeDate *Date   `json:"intake_date"`
}

// AnimalUpdate is a partial update: only fields present in the payload change.
type AnimalUpdate struct {
	Name         Optional[string] `json:"name"`
	Age          Optional[int]    `json:"age"`
	Kind         Optional[string] `json:"kind"`
	Fixed        Optional[bool]   `json:"fixed"`
	Vaccinated   Optional[bool]   `json:"vaccinated"`
	IntakeDate   Optional[Date]   `json:"intake_date"`
	AdopterID    Optional[string] `json:"adopter_id"`
	AdoptionDate Optional[Date]   `json:"adoption_date"`
}

// PetView pairs an adopted animal with its adoption date (GET /users/{id}/pets).
type PetView struct {
	Animal       Animal `json:"animal"`
	AdoptionDate Date   `json:"adoption_date"`
}
