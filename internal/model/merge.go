package model

// MERGING PARTIAL UPDATES:
// Each entity gets its own merge function that lists every updatable field.
// A field added to Animal but not listed here cannot be updated.
//
// Merge functions take and return values. Pointer fields are replaced, never
// written through, so the receiver is left untouched.
//
// No validation happens here; the service validates the update before merging.

// Merge returns a copy of a with every field set in u applied.
func (a Animal) Merge(u AnimalUpdate) Animal {
	if u.Name.Set {
		a.Name = u.Name.Value
	}
	if u.Age.Set {
		a.Age = u.Age.Value
	}
	if u.Kind.Set {
		a.Kind = u.Kind.Value
	}
	if u.Fixed.Set {
		a.Fixed = u.Fixed.Value
	}
	if u.Vaccinated.Set {
		a.Vaccinated = u.Vaccinated.Value
	}
	if u.IntakeDate.Set {
		a.IntakeDate = u.IntakeDate.Value
	}
	if u.AdopterID.Set {
		a.AdopterID = u.AdopterID.Ptr()
	}
	if u.AdoptionDate.Set {
		a.AdoptionDate = u.AdoptionDate.Ptr()
	}
	return a
}

// Merge returns a copy of usr with every field set in u applied.
// u.Password is ignored: only the already-hashed PasswordHash is merged.
func (usr User) Merge(u UserUpdate) User {
	if u.Username.Set {
		usr.Username = u.Username.Value
	}
	if u.Email.Set {
		usr.Email = u.Email.Value
	}
	if u.PasswordHash.Set {
		usr.PasswordHash = u.PasswordHash.Value
	}
	return usr
}
