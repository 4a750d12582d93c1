package model

// Foster is a time-bounded custodial link between a user and an animal.
// It has no id of its own: (UserID, AnimalID) is the key.
type Foster struct {
	UserID    string `json:"user_id"`
	AnimalID  string `json:"animal_id"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
}

// FosterCreate is the body of POST /animals/{id}/fosters.
// The fostering user is the authenticated caller; the animal comes from the path.
type FosterCreate struct {
	StartDate *Date `json:"start_date"`
	EndDate   *Date `json:"end_date"`
}

// FosterView pairs a fostered animal with the foster period (GET /users/{id}/fosters).
type FosterView struct {
	Animal    Animal `json:"animal"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
}
